package duckdb

import (
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

func records(n int, ch model.Channel, msg string) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{Entry: model.Entry{Message: msg, Color: "#94ddfa", Timestamp: "[ 1時  2分  3秒]"}, Channel: ch}
	}
	return out
}

func totalCount(t *testing.T, store *Store) int64 {
	t.Helper()
	n, err := store.TotalCount()
	if err != nil {
		t.Fatalf("TotalCount: %v", err)
	}
	return n
}

func TestInsertBuffer_AddAndStop(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{FlushInterval: time.Hour})

	buf.Add(records(10, model.Club, "test message"))
	buf.Stop()

	if got := totalCount(t, store); got != 10 {
		t.Errorf("after Stop, TotalCount = %d, want 10", got)
	}
}

func TestInsertBuffer_BatchThreshold(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{BatchSize: 5, FlushInterval: time.Hour})
	defer buf.Stop()

	buf.Add(records(7, model.Team, "batch test"))

	deadline := time.Now().Add(5 * time.Second)
	for totalCount(t, store) < 7 {
		if time.Now().After(deadline) {
			t.Fatalf("batch not flushed before the interval: TotalCount = %d", totalCount(t, store))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInsertBuffer_ConcurrentAdd(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{BatchSize: 32, FlushInterval: 5 * time.Millisecond})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				buf.Add(records(1, model.Public, "concurrent test"))
			}
		}()
	}

	wg.Wait()
	buf.Stop()

	if got := totalCount(t, store); got != 500 {
		t.Errorf("concurrent insert TotalCount = %d, want 500", got)
	}
}

func TestInsertBuffer_StopIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store)

	buf.Add(records(1, model.Server, "idempotent stop"))
	buf.Stop()
	buf.Stop()
	buf.Add(records(1, model.Server, "after stop"))

	if got := totalCount(t, store); got != 1 {
		t.Errorf("after double Stop, TotalCount = %d, want 1", got)
	}
}

func TestInsertBuffer_RecordsLogDay(t *testing.T) {
	store := newTestStore(t)
	jst := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 9th is the 10th in JST.
	at := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	buf := NewInsertBuffer(store, InsertBufferConfig{
		Location: jst,
		Clock:    model.ClockFunc(func() time.Time { return at }),
	})

	buf.Add(records(1, model.System, "day"))
	buf.Stop()

	got, err := store.RecentEntries(model.System, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("RecentEntries = %v, %v", got, err)
	}
	if y, m, d := got[0].LogDay.Date(); y != 2024 || m != time.March || d != 10 {
		t.Errorf("LogDay = %v, want 2024-03-10", got[0].LogDay)
	}
}

func TestInsertBuffer_FlushWritesPending(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{FlushInterval: time.Hour})
	defer buf.Stop()

	buf.Add(records(3, model.Club, "first"))
	buf.Flush()
	if got := totalCount(t, store); got != 3 {
		t.Fatalf("after Flush, TotalCount = %d, want 3", got)
	}

	buf.Flush()
	buf.Add(records(2, model.Club, "second"))
	buf.Flush()
	if got := totalCount(t, store); got != 5 {
		t.Errorf("after second Flush, TotalCount = %d, want 5", got)
	}
}

func TestInsertBuffer_FlushConcurrentWithAdd(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{BatchSize: 4, FlushInterval: time.Millisecond})
	defer buf.Stop()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				buf.Add(records(3, model.Team, "busy"))
				buf.Flush()
			}
		}()
	}
	wg.Wait()
	buf.Flush()

	if got := totalCount(t, store); got != 120 {
		t.Errorf("TotalCount = %d, want 120", got)
	}
}

func TestInsertBuffer_FlushAfterStop(t *testing.T) {
	store := newTestStore(t)
	buf := NewInsertBuffer(store, InsertBufferConfig{FlushInterval: time.Hour})

	buf.Add(records(2, model.System, "before stop"))
	buf.Stop()
	buf.Flush()

	if got := totalCount(t, store); got != 2 {
		t.Errorf("TotalCount = %d, want 2", got)
	}
}
