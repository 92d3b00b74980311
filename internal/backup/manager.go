package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 8

	snapshotPrefix = "chatlog-"
	snapshotExt    = ".duckdb"
	dayLayout      = "2006-01-02"
)

// Manager keeps one snapshot of the archive per log day. Snapshots taken
// during a day replace that day's file, so the newest one reflects the day
// as far as it got. Only the newest KeepLast days are kept.
type Manager struct {
	store Snapshotter
	cfg   Config

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager validates cfg, takes a first snapshot and starts the periodic
// loop. It returns nil when snapshots are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	m, err := newManager(store, cfg)
	if m == nil || err != nil {
		return nil, err
	}

	if err := m.RunOnce(); err != nil {
		log.Printf("backup: startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("backup: a snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = model.SystemClock{}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}
	return &Manager{store: store, cfg: cfg, done: make(chan struct{})}, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(); err != nil {
				log.Printf("backup: periodic snapshot failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// SnapshotPath is where the snapshot of day's log is written.
func (m *Manager) SnapshotPath(day time.Time) string {
	return filepath.Join(m.cfg.Dir, snapshotPrefix+day.Format(dayLayout)+snapshotExt)
}

// RunOnce flushes buffered entries, snapshots the archive under the current
// log day and prunes days beyond KeepLast.
func (m *Manager) RunOnce() error {
	if m.cfg.Buffer != nil {
		m.cfg.Buffer.Flush()
	}

	day := m.cfg.Clock.Now().In(m.cfg.Location)
	path := m.SnapshotPath(day)
	n, err := m.store.SnapshotTo(path)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", day.Format(dayLayout), err)
	}
	log.Printf("backup: log day %s snapshot %s (%d entries)", day.Format(dayLayout), path, n)

	if err := prune(m.cfg.Dir, m.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Stop ends the periodic loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// snapshotDays lists the log days that have a snapshot in dir, oldest first.
// Files that merely share the prefix are ignored.
func snapshotDays(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, snapshotPrefix+"*"+snapshotExt))
	if err != nil {
		return nil, err
	}
	var days []string
	for _, path := range matches {
		day := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), snapshotPrefix), snapshotExt)
		if _, err := time.Parse(dayLayout, day); err == nil {
			days = append(days, day)
		}
	}
	// ISO dates sort chronologically.
	slices.Sort(days)
	return days, nil
}

func prune(dir string, keepLast int) error {
	days, err := snapshotDays(dir)
	if err != nil {
		return err
	}
	if len(days) <= keepLast {
		return nil
	}
	for _, day := range days[:len(days)-keepLast] {
		path := filepath.Join(dir, snapshotPrefix+day+snapshotExt)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
