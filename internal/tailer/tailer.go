package tailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tinytelemetry/chatlog/internal/ingest"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/timestamp"
)

const (
	scanChunk = 4096
	// headerScanLimit bounds the prefix inspected for an unfinished header.
	headerScanLimit = 64 << 10
)

var crlf = []byte("\r\n")

// Config describes where the daily chat log lives.
type Config struct {
	Dir         string
	Prefix      string
	Ext         string
	Location    *time.Location
	HeaderLines int
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = model.DefaultLogPrefix
	}
	if c.Ext == "" {
		c.Ext = model.DefaultLogExt
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.HeaderLines < 0 {
		c.HeaderLines = 0
	}
	return c
}

// Result is the outcome of one successful poll.
type Result struct {
	Status  model.PollStatus
	Records []model.Record
	// Rotated is set when the poll read a new day's file from its start.
	Rotated bool
}

// Tailer incrementally reads the current day's chat log. It owns the file
// handle, the committed byte offset and the instant of the last successful
// poll. The first successful poll only records where the file's last
// complete line ends; lines finished before it are never ingested.
//
// Tailer is not safe for concurrent use.
type Tailer struct {
	cfg  Config
	proc ingest.SpanProcessor

	file     *os.File
	path     string
	lastSize int64
	lastSeen time.Time
	// header lines of the current file still to be dropped
	pendingHeader int
}

// New creates a Tailer in the cold state: no handle and no offset.
func New(cfg Config) *Tailer {
	return &Tailer{
		cfg:  cfg.withDefaults(),
		proc: ingest.NewProcessor(),
	}
}

// DailyPath returns <dir>/<prefix>_YYYY_MM_DD.<ext> for t's calendar date.
func DailyPath(dir, prefix, ext string, t time.Time) string {
	name := fmt.Sprintf("%s_%04d_%02d_%02d.%s", prefix, t.Year(), int(t.Month()), t.Day(), ext)
	return filepath.Join(dir, name)
}

// Path returns the log path for now in the configured location.
func (t *Tailer) Path(now time.Time) string {
	return DailyPath(t.cfg.Dir, t.cfg.Prefix, t.cfg.Ext, now.In(t.cfg.Location))
}

// Offset returns the committed byte offset into the current file.
func (t *Tailer) Offset() int64 {
	return t.lastSize
}

// Poll examines the day's file and returns any newly appended records.
//
// The offset and last-seen instant are committed only when the poll
// succeeds. I/O and format errors leave them untouched so the same span is
// read again on the next poll.
func (t *Tailer) Poll(now time.Time) (Result, error) {
	now = now.In(t.cfg.Location)
	path := t.Path(now)

	cold := t.lastSeen.IsZero()
	rotated := !cold && !timestamp.SameDay(t.lastSeen, now, t.cfg.Location)

	f := t.file
	opened := false
	if f == nil || rotated || t.path != path {
		nf, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Result{Status: model.NoFile}, nil
			}
			return Result{}, fmt.Errorf("open %s: %w", path, err)
		}
		f = nf
		opened = true
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Status: model.NoFile}, nil
	}

	// Until commit, a freshly opened handle belongs to this call only.
	discard := func() {
		if opened {
			_ = f.Close()
		}
	}

	info, err := f.Stat()
	if err != nil {
		discard()
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	if cold {
		offset, header, err := t.baseline(f, size)
		if err != nil {
			discard()
			return Result{}, fmt.Errorf("baseline %s: %w", path, err)
		}
		t.commit(f, path, opened, offset, now)
		t.pendingHeader = header
		return Result{Status: model.Baseline}, nil
	}

	start := t.lastSize
	header := t.pendingHeader
	if rotated {
		start = 0
		header = t.cfg.HeaderLines
	} else {
		switch {
		case size == t.lastSize:
			t.commit(f, path, opened, size, now)
			return Result{Status: model.NoChange}, nil
		case size < t.lastSize:
			offset, header, err := t.baseline(f, size)
			if err != nil {
				discard()
				return Result{}, fmt.Errorf("baseline %s: %w", path, err)
			}
			log.Printf("tailer: %s shrank from %d to %d bytes, re-baselining at %d", path, t.lastSize, size, offset)
			t.commit(f, path, opened, offset, now)
			t.pendingHeader = header
			return Result{Status: model.NoChange}, nil
		}
	}

	span := make([]byte, size-start)
	n, err := f.ReadAt(span, start)
	if err != nil && !errors.Is(err, io.EOF) {
		discard()
		return Result{}, fmt.Errorf("read %s at %d: %w", path, start, err)
	}
	span = span[:ingest.CompleteLength(span[:n])]

	if len(span) == 0 {
		if rotated {
			// An empty new file must still be read from byte 0 next time.
			discard()
			return Result{Status: model.NoChange, Rotated: true}, nil
		}
		t.commit(f, path, opened, t.lastSize, now)
		return Result{Status: model.NoChange}, nil
	}

	records, skipped, err := t.proc.Process(span, header)
	if err != nil {
		discard()
		return Result{}, err
	}

	t.commit(f, path, opened, start+int64(len(span)), now)
	t.pendingHeader = header - skipped
	if len(records) == 0 {
		return Result{Status: model.NoChange, Rotated: rotated}, nil
	}
	return Result{Status: model.Updated, Records: records, Rotated: rotated}, nil
}

// baseline picks the starting offset for a file of the given size: the end
// of its last complete line. A line still being written is left for the next
// poll. The returned header count is what remains of the header budget when
// the file has not finished its header yet.
func (t *Tailer) baseline(f *os.File, size int64) (int64, int, error) {
	offset, err := lastLineEnd(f, size)
	if err != nil {
		return 0, 0, err
	}
	if t.cfg.HeaderLines == 0 || offset >= headerScanLimit {
		return offset, 0, nil
	}
	prefix := make([]byte, offset)
	n, err := f.ReadAt(prefix, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, err
	}
	written := bytes.Count(prefix[:n], crlf)
	return offset, max(t.cfg.HeaderLines-written, 0), nil
}

// lastLineEnd returns the offset just past the last "\r\n" among the first
// size bytes of f, or 0 when there is none. It scans backwards in chunks.
func lastLineEnd(f *os.File, size int64) (int64, error) {
	buf := make([]byte, scanChunk+1)
	end := size
	for end > 0 {
		start := max(end-scanChunk, 0)
		// One byte past end catches a terminator split across chunks.
		chunk := buf[:min(end+1, size)-start]
		n, err := f.ReadAt(chunk, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if k := ingest.CompleteLength(chunk[:n]); k > 0 {
			return start + int64(k), nil
		}
		end = start
	}
	return 0, nil
}

func (t *Tailer) commit(f *os.File, path string, opened bool, size int64, now time.Time) {
	if opened {
		if t.file != nil {
			_ = t.file.Close()
		}
		t.file = f
		t.path = path
	}
	t.lastSize = size
	t.lastSeen = now
}

// Close releases the file handle. The offset is kept so a later poll on the
// same day resumes where it stopped.
func (t *Tailer) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
