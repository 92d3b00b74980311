package model

import "time"

// Clock supplies the current instant. Calendar math is done by callers in
// their configured location.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// ChannelReader provides bounded or full reads of the channel buffers.
type ChannelReader interface {
	View(ch Channel, bounded bool) View
	Views(bounded bool) []View
}

// RateReader provides the derived gain rate.
type RateReader interface {
	Rate() Rate
}

// Reader is the unified read contract for read surfaces (dashboard and HTTP).
type Reader interface {
	ChannelReader
	RateReader
	LastPoll() PollEvent
}

// EntrySink receives every batch of records ingested by a poll.
type EntrySink interface {
	Add(records []Record)
}
