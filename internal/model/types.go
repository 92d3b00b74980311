package model

import (
	"fmt"
	"strings"
	"time"
)

// Channel is one of the seven fixed logical message categories.
type Channel int

const (
	All Channel = iota
	Public
	Private
	Team
	Club
	System
	Server
)

// ChannelCount is the number of channels, including All.
const ChannelCount = 7

var channelNames = [ChannelCount]string{"All", "Public", "Private", "Team", "Club", "System", "Server"}

// Channels returns every channel in display order.
func Channels() []Channel {
	return []Channel{All, Public, Private, Team, Club, System, Server}
}

// Valid reports whether c is inside the closed 0-6 range.
func (c Channel) Valid() bool {
	return c >= All && c <= Server
}

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel converts a channel name (case-insensitive) to a Channel.
func ParseChannel(name string) (Channel, error) {
	name = strings.TrimSpace(name)
	for i, n := range channelNames {
		if strings.EqualFold(n, name) {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// MarshalText encodes the channel by name.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a channel name.
func (c *Channel) UnmarshalText(text []byte) error {
	ch, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

// Entry is one parsed chat log line. It is never mutated after parsing.
type Entry struct {
	Message   string `json:"message"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"` // raw clock token, e.g. "[ 0時  0分  0秒]"
}

// Record is an Entry together with its specific (non-All) channel.
type Record struct {
	Entry
	Channel Channel `json:"channel"`
}

// View is a read of one channel's buffer.
// Total is the stored length, which may exceed len(Entries) for bounded reads.
type View struct {
	Channel Channel `json:"-"`
	Entries []Entry `json:"entries"`
	Updated bool    `json:"updated"`
	Total   int     `json:"total"`
}

// Rate is the derived gain throughput. PerMinute and PerHour are exact
// integer multiples of PerSecond.
type Rate struct {
	PerSecond int64 `json:"per_second"`
	PerMinute int64 `json:"per_minute"`
	PerHour   int64 `json:"per_hour"`
}

// RateFromSum scales a windowed sum into a Rate.
func RateFromSum(sum int64, window time.Duration) Rate {
	secs := int64(window / time.Second)
	if secs <= 0 {
		return Rate{}
	}
	perSecond := sum / secs
	return Rate{
		PerSecond: perSecond,
		PerMinute: perSecond * 60,
		PerHour:   perSecond * 60 * 60,
	}
}
