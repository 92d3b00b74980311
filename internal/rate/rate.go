package rate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
	"github.com/tinytelemetry/chatlog/internal/timestamp"
)

// DefaultPattern matches the System message announcing an experience gain.
// The first group captures the amount, with optional thousands separators.
const DefaultPattern = `経験値が\s*([0-9][0-9,]*)\s*(?:上がりました|増加しました)`

// Estimator sums gains announced inside a trailing time window.
type Estimator struct {
	window  time.Duration
	pattern *regexp.Regexp
}

// New creates an Estimator. An empty pattern selects DefaultPattern; a
// non-positive window selects model.DefaultRateWindow.
func New(window time.Duration, pattern string) (*Estimator, error) {
	if window <= 0 {
		window = model.DefaultRateWindow
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile rate pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("rate pattern %q has no capture group", pattern)
	}
	return &Estimator{window: window, pattern: re}, nil
}

// Window returns the trailing span the estimator sums over.
func (e *Estimator) Window() time.Duration {
	return e.window
}

// Gain extracts the announced amount from a System message.
func (e *Estimator) Gain(message string) (int64, bool) {
	m := e.pattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Sum walks system from newest to oldest and totals the gains whose
// reconstructed time lies in [now-window, now]. The walk stops at the first
// gain older than the window. Entries with an unreadable clock or a time
// after now are skipped.
func (e *Estimator) Sum(system []model.Entry, now time.Time) int64 {
	lower := now.Add(-e.window)
	var sum int64
	for i := len(system) - 1; i >= 0; i-- {
		entry := system[i]
		gain, ok := e.Gain(entry.Message)
		if !ok {
			continue
		}
		clock, ok := timestamp.Parse(entry.Timestamp)
		if !ok {
			continue
		}
		at := timestamp.Reconstruct(clock, now)
		if at.Before(lower) {
			break
		}
		if at.After(now) {
			continue
		}
		sum += gain
	}
	return sum
}

// Compute returns the gain rate over the window ending at now.
func (e *Estimator) Compute(system []model.Entry, now time.Time) model.Rate {
	return model.RateFromSum(e.Sum(system, now), e.window)
}
