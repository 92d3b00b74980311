package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tinytelemetry/chatlog/internal/model"
)

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// EntryFilter narrows archive reads.
type EntryFilter struct {
	// Channel restricts rows to one channel; All means no restriction.
	Channel model.Channel
	// Pattern is a regular expression the message must match.
	Pattern string
	Limit   int
}

// RecentEntries returns the newest limit entries of ch in chronological order.
func (s *Store) RecentEntries(ch model.Channel, limit int) ([]ArchivedEntry, error) {
	return s.SearchEntries(EntryFilter{Channel: ch, Limit: limit})
}

// SearchEntries returns the newest entries matching f in chronological order.
func (s *Store) SearchEntries(f EntryFilter) ([]ArchivedEntry, error) {
	if !f.Channel.Valid() {
		return nil, fmt.Errorf("invalid channel %d", int(f.Channel))
	}
	if f.Limit <= 0 {
		f.Limit = model.DefaultViewLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var conditions []string
	var args []any
	if f.Channel != model.All {
		conditions = append(conditions, "channel = ?")
		args = append(args, f.Channel.String())
	}
	if f.Pattern != "" {
		conditions = append(conditions, "regexp_matches(message, ?)")
		args = append(args, f.Pattern)
	}

	inner := "SELECT id, ingested_at, log_day, channel, color, clock, message FROM entries"
	if len(conditions) > 0 {
		inner += " WHERE " + strings.Join(conditions, " AND ")
	}
	inner += " ORDER BY id DESC LIMIT ?"
	args = append(args, f.Limit)

	// Wrap so rows come back oldest first.
	query := "SELECT * FROM (" + inner + ") ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var results []ArchivedEntry
	for rows.Next() {
		var e ArchivedEntry
		var day sql.NullTime
		var channel string
		if err := rows.Scan(&e.ID, &e.IngestedAt, &day, &channel, &e.Color, &e.Timestamp, &e.Message); err != nil {
			log.Printf("duckdb: scan error (SearchEntries): %v", err)
			continue
		}
		if day.Valid {
			e.LogDay = day.Time
		}
		ch, err := model.ParseChannel(channel)
		if err != nil {
			log.Printf("duckdb: skipping row %d: %v", e.ID, err)
			continue
		}
		e.Channel = ch
		results = append(results, e)
	}
	return results, rows.Err()
}

// CountByChannel returns the archived row count of every specific channel,
// in channel order, with All holding the grand total.
func (s *Store) CountByChannel() ([]ChannelTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT channel, COUNT(*) FROM entries GROUP BY channel`)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	var total int64
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ChannelTotal, 0, model.ChannelCount)
	for _, ch := range model.Channels() {
		n := counts[ch.String()]
		if ch == model.All {
			n = total
		}
		out = append(out, ChannelTotal{Channel: ch.String(), Count: n})
	}
	return out, nil
}

// TotalCount returns the number of archived entries.
func (s *Store) TotalCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

// DeleteBefore removes entries ingested before cutoff and returns how many
// rows were deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE ingested_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired entries: %w", err)
	}
	return res.RowsAffected()
}
