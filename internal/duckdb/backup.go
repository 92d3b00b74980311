package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// snapshotAlias is the catalog name the snapshot file is attached under.
const snapshotAlias = "chatlog_snapshot"

// SnapshotTo copies the archive into a standalone DuckDB file at dstPath,
// replacing any earlier snapshot there, and returns the number of entries
// the snapshot holds. In-memory archives can be snapshotted too.
//
// Writes are held off for the duration so the copy matches one instant.
// Entries still queued in an InsertBuffer are not part of it; flush the
// buffer first.
func (s *Store) SnapshotTo(dstPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := dstPath + ".tmp"
	removeDatabaseFile(tmp)

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	n, err := s.copyInto(ctx, tmp)
	s.mu.Unlock()
	if err != nil {
		removeDatabaseFile(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dstPath); err != nil {
		removeDatabaseFile(tmp)
		return 0, fmt.Errorf("install snapshot: %w", err)
	}
	return n, nil
}

func (s *Store) copyInto(ctx context.Context, path string) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var current string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&current); err != nil {
		return 0, fmt.Errorf("resolve archive catalog: %w", err)
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("ATTACH %s AS %s", quoteLiteral(path), snapshotAlias)); err != nil {
		return 0, fmt.Errorf("attach snapshot: %w", err)
	}
	attached := true
	defer func() {
		if attached {
			_, _ = conn.ExecContext(context.Background(), "DETACH "+snapshotAlias)
		}
	}()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("COPY FROM DATABASE %s TO %s", quoteIdent(current), snapshotAlias)); err != nil {
		return 0, fmt.Errorf("copy archive: %w", err)
	}

	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM "+snapshotAlias+".entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshot entries: %w", err)
	}

	attached = false
	if _, err := conn.ExecContext(ctx, "DETACH "+snapshotAlias); err != nil {
		return 0, fmt.Errorf("detach snapshot: %w", err)
	}
	return n, nil
}

// removeDatabaseFile removes a DuckDB file and its write-ahead log.
func removeDatabaseFile(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + ".wal")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
