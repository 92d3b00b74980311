// Package monitor owns the chat log tail state and the channel buffers
// behind a single lock, and runs the poll loop that feeds them.
//
// Polls take the write lock; views and the rate take the read lock, so any
// number of readers proceed together but never observe a half-applied poll.
// A second poll attempted while one is running is skipped, not queued.
package monitor

import (
	"errors"
	"sync"
	"time"

	"github.com/tinytelemetry/chatlog/internal/logparse"
	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/rate"
	"github.com/tinytelemetry/chatlog/internal/store"
	"github.com/tinytelemetry/chatlog/internal/tailer"
)

// Config holds the monitor's tunables.
type Config struct {
	Tailer      tailer.Config
	ViewLimit   int
	RateWindow  time.Duration
	RatePattern string
}

// Publisher receives a summary of every poll.
type Publisher interface {
	Publish(ev model.PollEvent)
}

// Option configures optional collaborators.
type Option func(*Monitor)

// WithSink forwards every ingested batch to sink after the lock is released.
func WithSink(sink model.EntrySink) Option {
	return func(m *Monitor) { m.sink = sink }
}

// WithPublisher publishes a PollEvent after every poll.
func WithPublisher(pub Publisher) Option {
	return func(m *Monitor) { m.pub = pub }
}

// Monitor is the single owner of the tailer and the channel buffers.
type Monitor struct {
	mu      sync.RWMutex
	polling sync.Mutex

	clock model.Clock
	loc   *time.Location
	limit int

	tail *tailer.Tailer
	bufs *store.Buffers
	est  *rate.Estimator
	last model.PollEvent

	sink model.EntrySink
	pub  Publisher
}

var _ model.Reader = (*Monitor)(nil)

// New creates a Monitor. The returned error reports an invalid rate pattern.
func New(cfg Config, clock model.Clock, opts ...Option) (*Monitor, error) {
	est, err := rate.New(cfg.RateWindow, cfg.RatePattern)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = model.SystemClock{}
	}
	loc := cfg.Tailer.Location
	if loc == nil {
		loc = time.UTC
		cfg.Tailer.Location = loc
	}
	limit := cfg.ViewLimit
	if limit <= 0 {
		limit = model.DefaultViewLimit
	}

	m := &Monitor{
		clock: clock,
		loc:   loc,
		limit: limit,
		tail:  tailer.New(cfg.Tailer),
		bufs:  store.New(),
		est:   est,
		last:  model.NewPollEvent(model.NoFile, time.Time{}, nil, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Poll runs one tail cycle. It returns model.Skipped without touching any
// state when another poll is in progress.
func (m *Monitor) Poll() (model.PollStatus, error) {
	if !m.polling.TryLock() {
		return model.Skipped, nil
	}
	defer m.polling.Unlock()

	now := m.clock.Now().In(m.loc)

	m.mu.Lock()
	m.bufs.ResetFlags()
	res, err := m.tail.Poll(now)
	if err == nil {
		m.bufs.AppendAll(res.Records)
	}
	ev := pollEvent(res, err, now)
	m.last = ev
	m.mu.Unlock()

	if m.sink != nil && len(res.Records) > 0 {
		m.sink.Add(res.Records)
	}
	if m.pub != nil {
		m.pub.Publish(ev)
	}
	return ev.Status, err
}

func pollEvent(res tailer.Result, err error, now time.Time) model.PollEvent {
	if err != nil {
		ev := model.NewPollEvent(model.NoChange, now, nil, 0)
		ev.Err = err.Error()
		ev.FormatErr = errors.Is(err, logparse.ErrFormat)
		return ev
	}
	return model.NewPollEvent(res.Status, now, touched(res.Records), len(res.Records))
}

// touched lists All plus every channel present in records, in channel order.
func touched(records []model.Record) []model.Channel {
	if len(records) == 0 {
		return nil
	}
	var seen [model.ChannelCount]bool
	seen[model.All] = true
	for _, rec := range records {
		seen[rec.Channel] = true
	}
	out := make([]model.Channel, 0, model.ChannelCount)
	for _, ch := range model.Channels() {
		if seen[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// View reads one channel. Bounded views hold at most the configured limit
// of most recent entries.
func (m *Monitor) View(ch model.Channel, bounded bool) model.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bufs.Read(ch, m.readLimit(bounded))
}

// Views reads every channel in display order.
func (m *Monitor) Views(bounded bool) []model.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := m.readLimit(bounded)
	views := make([]model.View, 0, model.ChannelCount)
	for _, ch := range model.Channels() {
		views = append(views, m.bufs.Read(ch, limit))
	}
	return views
}

func (m *Monitor) readLimit(bounded bool) int {
	if bounded {
		return m.limit
	}
	return 0
}

// Rate computes the gain rate from the System channel as of now.
func (m *Monitor) Rate() model.Rate {
	now := m.clock.Now().In(m.loc)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.est.Compute(m.bufs.Entries(model.System), now)
}

// LastPoll returns the summary of the most recent poll.
func (m *Monitor) LastPoll() model.PollEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Path returns the log file the next poll will look at.
func (m *Monitor) Path() string {
	return m.tail.Path(m.clock.Now())
}

// ViewLimit returns the cap applied to bounded views.
func (m *Monitor) ViewLimit() int {
	return m.limit
}

// Close releases the log file handle.
func (m *Monitor) Close() error {
	m.polling.Lock()
	defer m.polling.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tail.Close()
}
