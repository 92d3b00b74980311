package duckdb

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/chatlog/internal/duckdb/migrate"
)

// DefaultQueryTimeout bounds every archive statement.
const DefaultQueryTimeout = 30 * time.Second

// Store is the DuckDB archive of ingested chat entries.
type Store struct {
	db *sql.DB
	// mu serialises writes with snapshots. Readers take the read lock.
	mu           sync.RWMutex
	schema       int
	QueryTimeout time.Duration
}

// NewStore opens the archive at dbPath, or an in-memory one when dbPath is
// empty, and brings it to the current schema. An archive written by a newer
// build or missing entry columns is refused rather than written to.
// An optional queryTimeout overrides DefaultQueryTimeout.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	where := "memory"
	if dbPath != "" {
		where = dbPath
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", where, err)
	}

	res, err := migrate.Apply(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("archive %s: %w", where, err)
	}
	if res.Upgraded() && res.From > 0 {
		log.Printf("duckdb: archive %s upgraded from schema v%d to v%d", where, res.From, res.To)
	}

	s := &Store{db: db, schema: res.To, QueryTimeout: DefaultQueryTimeout}
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		s.QueryTimeout = queryTimeout[0]
	}
	return s, nil
}

// SchemaVersion is the archive schema version after opening.
func (s *Store) SchemaVersion() int { return s.schema }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
