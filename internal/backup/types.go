package backup

import (
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// Config controls daily archive snapshots.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Dir      string
	// KeepLast is the number of log days whose snapshots are kept.
	KeepLast int
	// Location decides which log day a snapshot belongs to.
	Location *time.Location
	Clock    model.Clock
	// Buffer, when set, is flushed before every snapshot.
	Buffer Flusher
}

// Snapshotter is the archive contract the manager needs.
type Snapshotter interface {
	SnapshotTo(dstPath string) (int64, error)
}

// Flusher pushes entries still held in memory into the archive.
type Flusher interface {
	Flush()
}
