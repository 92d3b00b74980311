package duckdb

import (
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// ArchivedEntry is one row of the entries table.
type ArchivedEntry struct {
	ID         int64         `json:"id"`
	IngestedAt time.Time     `json:"ingested_at"`
	LogDay     time.Time     `json:"log_day"`
	Channel    model.Channel `json:"channel"`
	model.Entry
}

// ChannelTotal is the archived row count of one channel.
type ChannelTotal struct {
	Channel string `json:"channel"`
	Count   int64  `json:"count"`
}
