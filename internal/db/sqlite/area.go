package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/snipdex/internal/db"
)

// Compile-time check: Area implements db.Area.
var _ db.Area = (*Area)(nil)

// Area is one namespace of the shared kv table.
type Area struct {
	db   *DB
	name string

	closeOnce sync.Once
}

// Name returns the area namespace.
func (a *Area) Name() string { return a.name }

// Get reads the present keys.
func (a *Area) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, a.name)
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := "SELECT key, value FROM kv WHERE area = ? AND key IN (" + placeholders + ")"

	rows, err := a.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("scan: %w", err)}
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set upserts every pair in one transaction.
func (a *Area) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	return a.inTx(ctx, db.OpSet, func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		for k, v := range items {
			if v == nil {
				v = []byte{}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv (area, key, value, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				a.name, k, v, now,
			); err != nil {
				return fmt.Errorf("upsert %s: %w", k, err)
			}
		}
		return nil
	})
}

// Remove deletes the keys in one transaction.
func (a *Area) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return a.inTx(ctx, db.OpRemove, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE area = ? AND key = ?`, a.name, k); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
		}
		return nil
	})
}

// Ping checks the underlying connection.
func (a *Area) Ping(ctx context.Context) error {
	if err := a.db.sql.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases this area's reference on the shared handle.
func (a *Area) Close() {
	a.closeOnce.Do(a.db.release)
}

func (a *Area) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("begin: %w", err)}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return &db.Error{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
