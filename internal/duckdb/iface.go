package duckdb

import "github.com/tinytelemetry/chatlog/internal/model"

// EntryWriter persists batches of archived entries.
type EntryWriter interface {
	InsertEntries(entries []ArchivedEntry) error
}

// ArchiveReader is the read side used by the HTTP API.
type ArchiveReader interface {
	RecentEntries(ch model.Channel, limit int) ([]ArchivedEntry, error)
	SearchEntries(f EntryFilter) ([]ArchivedEntry, error)
	CountByChannel() ([]ChannelTotal, error)
}

var (
	_ EntryWriter     = (*Store)(nil)
	_ ArchiveReader   = (*Store)(nil)
	_ model.EntrySink = (*InsertBuffer)(nil)
)
