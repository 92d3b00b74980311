package model

import "time"

// PollStatus is the outcome of one tailer poll.
type PollStatus int

const (
	// NoFile means the day's log file does not exist yet. Not an error.
	NoFile PollStatus = iota
	// Baseline means the first successful poll recorded the starting offset
	// without ingesting historical content.
	Baseline
	// NoChange means nothing new was ingested.
	NoChange
	// Updated means at least one entry was appended.
	Updated
	// Skipped means another poll was still running.
	Skipped
)

func (s PollStatus) String() string {
	switch s {
	case NoFile:
		return "no-file"
	case Baseline:
		return "baseline"
	case NoChange:
		return "no-change"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PollEvent summarizes one poll for subscribers and status displays.
type PollEvent struct {
	Status   PollStatus `json:"-"`
	State    string     `json:"status"`
	At       time.Time  `json:"at"`
	Channels []Channel  `json:"-"`
	Names    []string   `json:"channels,omitempty"`
	Count    int        `json:"count"`
	Err      string     `json:"error,omitempty"`
	// FormatErr is set when Err reports a log format break rather than I/O.
	FormatErr bool `json:"format_error,omitempty"`
}

// NewPollEvent fills the display fields derived from status and channels.
func NewPollEvent(status PollStatus, at time.Time, channels []Channel, count int) PollEvent {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.String())
	}
	return PollEvent{
		Status:   status,
		State:    status.String(),
		At:       at,
		Channels: channels,
		Names:    names,
		Count:    count,
	}
}
