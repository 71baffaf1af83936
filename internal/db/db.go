package db

import (
	"context"
	"time"
)

// Area is a named key/value storage partition. Keys absent from the area
// are omitted from the Get result rather than reported as errors.
type Area interface {
	Getter
	Setter
	Remove(ctx context.Context, keys ...string) error
	Pinger
	Close()
}

// Getter reads a set of keys.
type Getter interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
}

// Setter writes a set of key/value pairs.
type Setter interface {
	Set(ctx context.Context, items map[string][]byte) error
}

// Pinger checks area availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GetOne reads a single key, returning ErrKeyNotFound if absent.
func GetOne(ctx context.Context, g Getter, key string) ([]byte, error) {
	m, err := g.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// WaitForReady polls Ping until the area responds or timeout expires.
func WaitForReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &Error{Op: OpPing, Err: ctx.Err()}
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
