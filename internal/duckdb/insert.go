package duckdb

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

const (
	// DefaultBatchSize is the pending entry count that triggers a flush.
	DefaultBatchSize = 500
	// DefaultFlushInterval is how often pending entries are flushed.
	DefaultFlushInterval = time.Second
	// DefaultFlushQueueSize is the number of batches queued for the flush worker.
	DefaultFlushQueueSize = 16
)

// InsertBufferConfig holds tunable parameters for the insert buffer.
type InsertBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
	// Location decides the calendar day recorded with each entry.
	Location *time.Location
	Clock    model.Clock
}

// InsertBuffer batches ingested records and writes them to the archive on
// its own goroutine. Add never blocks on DuckDB. Only the tick loop and
// Flush hand batches to the flush worker.
type InsertBuffer struct {
	writer        EntryWriter
	clock         model.Clock
	loc           *time.Location
	mu            sync.Mutex
	pending       []ArchivedEntry
	// sendMu keeps batches reaching the archive in the order they left pending.
	sendMu        sync.Mutex
	flushChan     chan flushJob
	maxBatch      int
	flushInterval time.Duration
	kick          chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup

	// backpressureCount tracks inline flushes for throttled logging.
	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64
}

// NewInsertBuffer creates an insert buffer that flushes to writer.
func NewInsertBuffer(writer EntryWriter, conf ...InsertBufferConfig) *InsertBuffer {
	var c InsertBufferConfig
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.FlushQueueSize <= 0 {
		c.FlushQueueSize = DefaultFlushQueueSize
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Clock == nil {
		c.Clock = model.SystemClock{}
	}

	b := &InsertBuffer{
		writer:        writer,
		clock:         c.Clock,
		loc:           c.Location,
		pending:       make([]ArchivedEntry, 0, c.BatchSize),
		flushChan:     make(chan flushJob, c.FlushQueueSize),
		maxBatch:      c.BatchSize,
		flushInterval: c.FlushInterval,
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

func (b *InsertBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.kick:
			b.drainPending()
		case <-b.done:
			b.drainPending()
			return
		}
	}
}

// logBackpressure logs at most once per 10 seconds.
func (b *InsertBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, %d inline flushes (archive falling behind)", count)
	}
}

func (b *InsertBuffer) drainPending() {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]ArchivedEntry, 0, b.maxBatch)
	b.mu.Unlock()

	b.enqueue(batch)
}

// flushJob is one batch for the flush worker. written, when set, is closed
// once the batch and every batch queued before it are in the archive.
type flushJob struct {
	entries []ArchivedEntry
	written chan struct{}
}

// enqueue hands batch to the flush worker, or flushes inline when its
// queue is full.
func (b *InsertBuffer) enqueue(batch []ArchivedEntry) {
	select {
	case b.flushChan <- flushJob{entries: batch}:
	default:
		b.logBackpressure()
		if err := b.writer.InsertEntries(batch); err != nil {
			log.Printf("duckdb: inline flush error: %v", err)
		}
	}
}

func (b *InsertBuffer) flushWorker() {
	defer b.wg.Done()
	for job := range b.flushChan {
		if len(job.entries) > 0 {
			if err := b.writer.InsertEntries(job.entries); err != nil {
				log.Printf("duckdb: flush error: %v", err)
			}
		}
		if job.written != nil {
			close(job.written)
		}
	}
}

// Flush writes every entry added so far and waits until the flush worker
// has caught up, so a snapshot taken afterwards includes them. It does
// nothing after Stop, which flushes on its own.
func (b *InsertBuffer) Flush() {
	b.sendMu.Lock()
	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		b.sendMu.Unlock()
		return
	default:
	}
	// Registered before done can close, so Stop keeps flushChan open for us.
	b.tickWg.Add(1)
	batch := b.pending
	b.pending = make([]ArchivedEntry, 0, b.maxBatch)
	b.mu.Unlock()

	written := make(chan struct{})
	b.flushChan <- flushJob{entries: batch, written: written}
	b.tickWg.Done()
	b.sendMu.Unlock()
	<-written
}

// Add queues records for archiving.
func (b *InsertBuffer) Add(records []model.Record) {
	if len(records) == 0 {
		return
	}
	now := b.clock.Now().In(b.loc)
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		log.Printf("duckdb: dropping %d entries added after stop", len(records))
		return
	default:
	}
	for _, rec := range records {
		b.pending = append(b.pending, ArchivedEntry{
			IngestedAt: now,
			LogDay:     day,
			Channel:    rec.Channel,
			Entry:      rec.Entry,
		})
	}
	full := len(b.pending) >= b.maxBatch
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Stop flushes remaining entries and waits for all writes to complete.
func (b *InsertBuffer) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		close(b.done)
		b.mu.Unlock()
		// The final drain must reach flushChan before it is closed.
		b.tickWg.Wait()
		close(b.flushChan)
		b.wg.Wait()
	})
}

// InsertEntries writes a batch in one transaction. When the batch fails it
// is retried row by row so one bad row does not lose the rest.
func (s *Store) InsertEntries(entries []ArchivedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insertBatchTx(ctx, entries)
	if err == nil {
		return nil
	}

	var failed int
	for _, e := range entries {
		if rerr := s.insertBatchTx(ctx, []ArchivedEntry{e}); rerr != nil {
			failed++
			log.Printf("duckdb: dropping entry (channel=%s msg=%.80s): %v", e.Channel, e.Message, rerr)
		}
	}
	if failed == len(entries) {
		return fmt.Errorf("insert %d entries: %w", len(entries), err)
	}
	if failed > 0 {
		log.Printf("duckdb: batch partially failed, %d/%d entries dropped", failed, len(entries))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, entries []ArchivedEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (ingested_at, log_day, channel, color, clock, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		var day any
		if !e.LogDay.IsZero() {
			day = e.LogDay
		}
		if _, err := stmt.ExecContext(ctx, e.IngestedAt, day, e.Channel.String(), e.Color, e.Timestamp, e.Message); err != nil {
			return fmt.Errorf("entry insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
