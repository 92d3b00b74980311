package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher signals when a daily chat log in a directory is written to.
// Signals are coalesced: a burst of writes produces at least one wake-up,
// never a backlog.
type Watcher struct {
	fsw     *fsnotify.Watcher
	dir     string
	pattern string
	wake    chan struct{}
}

// Pattern returns the glob matching every daily log file name.
func Pattern(prefix, ext string) string {
	return prefix + "_*_*_*." + ext
}

// New watches dir for changes to files whose base name matches pattern.
func New(dir, pattern string) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	return &Watcher{
		fsw:     fsw,
		dir:     abs,
		pattern: pattern,
		wake:    make(chan struct{}, 1),
	}, nil
}

// Wake returns the channel signalled on relevant file events.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Matches reports whether a changed path is a daily log file.
func (w *Watcher) Matches(path string) bool {
	ok, err := doublestar.Match(w.pattern, filepath.Base(path))
	return err == nil && ok
}

// Start forwards relevant events until ctx is cancelled. It closes the
// underlying watcher on return.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !w.Matches(ev.Name) {
				continue
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: %s: %v", w.dir, err)
		}
	}
}
