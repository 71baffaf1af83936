package memory

import (
	"context"
	"sync"

	"github.com/kailas-cloud/snipdex/internal/db"
)

// Compile-time check: Area implements db.Area.
var _ db.Area = (*Area)(nil)

// Area is an in-process db.Area. Values are copied on the way in and out.
type Area struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory area.
func New() *Area {
	return &Area{data: make(map[string][]byte)}
}

// Get returns the values of the present keys.
func (a *Area) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrClosed}
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := a.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Set stores every pair.
func (a *Area) Set(_ context.Context, items map[string][]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return &db.Error{Op: db.OpSet, Err: db.ErrClosed}
	}
	for k, v := range items {
		a.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Remove deletes the keys.
func (a *Area) Remove(_ context.Context, keys ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return &db.Error{Op: db.OpRemove, Err: db.ErrClosed}
	}
	for _, k := range keys {
		delete(a.data, k)
	}
	return nil
}

// Ping always succeeds on an open area.
func (a *Area) Ping(_ context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close marks the area closed.
func (a *Area) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}
