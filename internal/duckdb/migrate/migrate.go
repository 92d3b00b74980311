// Package migrate brings a chat archive up to the layout this build reads
// and writes, then checks that the entries table really has that layout.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

var (
	// ErrNewerArchive means the archive records a schema version this build
	// does not know. Writing to it could lose columns.
	ErrNewerArchive = errors.New("archive was written by a newer chatlog")
	// ErrSchemaMismatch means the entries table lacks a column every archive
	// query depends on.
	ErrSchemaMismatch = errors.New("entries table does not match the archive layout")
)

// entryColumns are the entries columns the archive reads and writes.
var entryColumns = []string{"id", "ingested_at", "log_day", "channel", "color", "clock", "message"}

// Result reports the schema version before and after Apply.
type Result struct {
	From int
	To   int
}

// Upgraded reports whether Apply changed the archive.
func (r Result) Upgraded() bool { return r.To > r.From }

type migration struct {
	version int
	name    string
	sql     string
}

// Apply runs every pending migration, one transaction each, and verifies
// the entries table afterwards.
func Apply(db *sql.DB) (Result, error) {
	migs, err := load(embedded)
	if err != nil {
		return Result{}, err
	}
	return apply(db, migs)
}

// Version returns the archive's schema version and the newest one known.
func Version(db *sql.DB) (current, latest int, err error) {
	migs, err := load(embedded)
	if err != nil {
		return 0, 0, err
	}
	if err := bootstrap(db); err != nil {
		return 0, 0, err
	}
	current, err = appliedVersion(db)
	if err != nil {
		return 0, 0, err
	}
	return current, migs[len(migs)-1].version, nil
}

func apply(db *sql.DB, migs []migration) (Result, error) {
	if err := bootstrap(db); err != nil {
		return Result{}, err
	}
	current, err := appliedVersion(db)
	if err != nil {
		return Result{}, err
	}
	latest := migs[len(migs)-1].version
	if current > latest {
		return Result{From: current, To: current}, fmt.Errorf("%w: schema v%d, this build knows v%d", ErrNewerArchive, current, latest)
	}

	res := Result{From: current, To: current}
	for _, m := range migs {
		if m.version <= current {
			continue
		}
		if err := run(db, m); err != nil {
			return res, err
		}
		res.To = m.version
	}

	if err := checkEntries(db); err != nil {
		return res, err
	}
	return res, nil
}

func run(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", m.name, err)
	}
	for _, stmt := range statements(m.sql) {
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record %s: %w", m.name, err)
	}
	return tx.Commit()
}

// load reads NNN_description.sql files. Versions must run 1, 2, 3 without
// gaps so an archive's version alone says which files it has seen.
func load(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	migs := make([]migration, 0, len(files))
	for _, file := range files {
		name := path.Base(file)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: want NNN_description.sql", name)
		}
		ver, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		migs = append(migs, migration{version: ver, name: name, sql: string(data)})
	}
	if len(migs) == 0 {
		return nil, errors.New("no migrations embedded")
	}

	slices.SortFunc(migs, func(a, b migration) int { return a.version - b.version })
	for i, m := range migs {
		if m.version != i+1 {
			return nil, fmt.Errorf("migration %s: version %d out of sequence, want %d", m.name, m.version, i+1)
		}
	}
	return migs, nil
}

// statements splits a migration file on semicolons.
func statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func bootstrap(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func appliedVersion(db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func checkEntries(db *sql.DB) error {
	rows, err := db.Query(`SELECT column_name FROM information_schema.columns
		WHERE table_catalog = current_database() AND table_schema = current_schema()
		  AND table_name = 'entries'`)
	if err != nil {
		return fmt.Errorf("read entries columns: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		have[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, col := range entryColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}
