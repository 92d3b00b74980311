package backup

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// fakeArchive records the order of flushes and snapshots.
type fakeArchive struct {
	events  []string
	entries int64
}

func (f *fakeArchive) Flush() {
	f.events = append(f.events, "flush")
	f.entries++
}

func (f *fakeArchive) SnapshotTo(dstPath string) (int64, error) {
	f.events = append(f.events, "snapshot "+filepath.Base(dstPath))
	data := []byte{byte(f.entries)}
	return f.entries, os.WriteFile(dstPath, data, 0o644)
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

var jst = time.FixedZone("JST", 9*60*60)

func testManager(t *testing.T, archive *fakeArchive, clock model.Clock, keep int) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := newManager(archive, Config{
		Enabled:  true,
		Dir:      dir,
		KeepLast: keep,
		Location: jst,
		Clock:    clock,
		Buffer:   archive,
	})
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	return m, dir
}

func snapshotNames(t *testing.T, dir string) []string {
	t.Helper()
	days, err := snapshotDays(dir)
	if err != nil {
		t.Fatalf("snapshotDays: %v", err)
	}
	return days
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeArchive{}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store Snapshotter
		cfg   Config
	}{
		{"nil store", nil, Config{Enabled: true, Dir: t.TempDir()}},
		{"no dir", &fakeArchive{}, Config{Enabled: true}},
		{"blank dir", &fakeArchive{}, Config{Enabled: true, Dir: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.store, tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRunOnce_NamesSnapshotByLogDay(t *testing.T) {
	t.Parallel()

	// 20:30 UTC on the 10th is already the 11th in JST.
	clock := &manualClock{now: time.Date(2024, 3, 10, 20, 30, 0, 0, time.UTC)}
	m, dir := testManager(t, &fakeArchive{}, clock, 3)

	if err := m.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := snapshotNames(t, dir); !slices.Equal(got, []string{"2024-03-11"}) {
		t.Errorf("snapshot days = %v, want [2024-03-11]", got)
	}
}

func TestRunOnce_FlushesBeforeSnapshot(t *testing.T) {
	t.Parallel()

	archive := &fakeArchive{}
	clock := &manualClock{now: time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)}
	m, _ := testManager(t, archive, clock, 3)

	if err := m.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	want := []string{"flush", "snapshot chatlog-2024-03-10.duckdb"}
	if !slices.Equal(archive.events, want) {
		t.Errorf("events = %q, want %q", archive.events, want)
	}
}

func TestRunOnce_SameDayReplacesSnapshot(t *testing.T) {
	t.Parallel()

	archive := &fakeArchive{}
	clock := &manualClock{now: time.Date(2024, 3, 10, 0, 0, 0, 0, jst)}
	m, dir := testManager(t, archive, clock, 3)

	for range 3 {
		if err := m.RunOnce(); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		clock.now = clock.now.Add(6 * time.Hour)
	}

	if got := snapshotNames(t, dir); !slices.Equal(got, []string{"2024-03-10"}) {
		t.Fatalf("snapshot days = %v, want one for 2024-03-10", got)
	}
	data, err := os.ReadFile(m.SnapshotPath(clock.now))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(data) != 1 || data[0] != 3 {
		t.Errorf("snapshot content = %v, want the third snapshot", data)
	}
}

func TestRunOnce_KeepsNewestDays(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2024, 3, 8, 12, 0, 0, 0, jst)}
	m, dir := testManager(t, &fakeArchive{}, clock, 2)

	unrelated := filepath.Join(dir, "chatlog-notes.duckdb")
	if err := os.WriteFile(unrelated, nil, 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	for range 4 {
		if err := m.RunOnce(); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		clock.now = clock.now.AddDate(0, 0, 1)
	}

	want := []string{"2024-03-10", "2024-03-11"}
	if got := snapshotNames(t, dir); !slices.Equal(got, want) {
		t.Errorf("snapshot days = %v, want %v", got, want)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("unrelated file was pruned: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeArchive{}, Config{
		Enabled:  true,
		Dir:      t.TempDir(),
		Interval: time.Hour,
	})
	if err != nil || m == nil {
		t.Fatalf("NewManager = %v, %v", m, err)
	}
	m.Stop()
	m.Stop()
}
