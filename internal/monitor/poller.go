package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tinytelemetry/chatlog/internal/logparse"
	"github.com/tinytelemetry/chatlog/internal/model"
)

// Run polls m every interval and whenever wake fires, until ctx is done.
// Polls run on this goroutine only, so they never overlap.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, wake <-chan struct{}) error {
	if interval <= 0 {
		interval = model.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr string
	for {
		lastErr = m.pollAndLog(lastErr)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}
	}
}

// StartPoller launches Run on a background goroutine. It returns immediately.
func StartPoller(ctx context.Context, m *Monitor, interval time.Duration, wake <-chan struct{}) {
	go func() {
		_ = m.Run(ctx, interval, wake)
	}()
}

// pollAndLog polls once and logs failures. A failure identical to the
// previous one is not logged again.
func (m *Monitor) pollAndLog(lastErr string) string {
	_, err := m.Poll()
	if err == nil {
		if lastErr != "" {
			log.Printf("monitor: polling recovered")
		}
		return ""
	}
	msg := err.Error()
	if msg == lastErr {
		return lastErr
	}
	if errors.Is(err, logparse.ErrFormat) {
		log.Printf("monitor: %v (the chat log format is not recognized; update required)", err)
	} else {
		log.Printf("monitor: poll failed, retrying: %v", err)
	}
	return msg
}
