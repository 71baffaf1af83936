// Package sqlite implements db.Area on an embedded SQLite file.
// Several areas share one file; each area is a namespace in the kv table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/snipdex/internal/db"
)

const defaultBusyTimeout = 5 * time.Second

const schema = `CREATE TABLE IF NOT EXISTS kv (
	area       TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (area, key)
)`

// DB is a shared SQLite handle. It closes when the last area is closed.
type DB struct {
	sql  *sql.DB
	path string

	mu   sync.Mutex
	refs int
}

// Open opens (or creates) the SQLite file at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("open sqlite %s: %w", path, err)}
	}

	// A single connection serializes writers and keeps ":memory:" databases alive.
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(0)
	handle.SetConnMaxIdleTime(0)

	if err := applyPragmas(ctx, handle); err != nil {
		_ = handle.Close()
		return nil, err
	}
	if _, err := handle.ExecContext(ctx, schema); err != nil {
		_ = handle.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("apply schema: %w", err)}
	}

	return &DB{sql: handle, path: path}, nil
}

func applyPragmas(ctx context.Context, handle *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := handle.ExecContext(ctx, pragma); err != nil {
			return &db.Error{Op: db.OpOpen, Err: fmt.Errorf("apply pragma %q: %w", pragma, err)}
		}
	}
	return nil
}

// Path returns the file the handle was opened on.
func (d *DB) Path() string { return d.path }

// Area returns the named area backed by this handle.
func (d *DB) Area(name string) *Area {
	d.mu.Lock()
	d.refs++
	d.mu.Unlock()
	return &Area{db: d, name: name}
}

func (d *DB) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refs--
	if d.refs == 0 {
		_ = d.sql.Close()
	}
}
