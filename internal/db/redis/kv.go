package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/snipdex/internal/db"
)

// Get reads the present keys with a single MGET.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	msgs, err := s.do(ctx, s.b().Mget().Key(full...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if len(msgs) != len(keys) {
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("expected %d values, got %d", len(keys), len(msgs))}
	}

	for i, m := range msgs {
		if m.IsNil() {
			continue
		}
		data, err := m.AsBytes()
		if err != nil {
			return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[keys[i]] = data
	}
	return out, nil
}

// Set stores every pair atomically with a single MSET.
func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	cmd := s.b().Mset().KeyValue()
	for k, v := range items {
		cmd = cmd.KeyValue(s.key(k), string(v))
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Remove deletes the keys.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.do(ctx, s.b().Del().Key(full...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpRemove, Err: err}
	}
	return nil
}
