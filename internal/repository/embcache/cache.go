// Package embcache keeps one embedding vector per snippet id, filled lazily
// through the embedder and persisted as a single document in a storage area.
package embcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/snipdex/internal/db"
	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
	"github.com/kailas-cloud/snipdex/internal/metrics"
)

// store is the consumer interface for cache persistence (ISP).
type store interface {
	db.Getter
	db.Setter
}

// embedder is the consumer interface for computing missing vectors.
type embedder interface {
	Embed(ctx context.Context, text string) (vector.Vector, error)
}

// Entry is an item to ensure a vector for.
type Entry struct {
	ID   string
	Text string
}

// Cache maps item ids to vectors independently of the owning domain.
// The in-memory map is the source of truth for the session; persistence
// failures are reported but never roll it back.
type Cache struct {
	store    store
	embedder embedder
	key      string
	logger   *zap.Logger

	mu      sync.RWMutex
	vectors map[string]vector.Vector
	dims    int

	inflight singleflight.Group
	flushMu  sync.Mutex
}

// New creates an empty cache. dims == 0 lets the first stored vector fix the dimension.
func New(s store, e embedder, dims int, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:    s,
		embedder: e,
		key:      domain.EmbeddingsKey,
		logger:   logger,
		vectors:  make(map[string]vector.Vector),
		dims:     dims,
	}
}

// Load replaces the in-memory map with the persisted document.
// Invalid entries are dropped and recomputed on the next EnsureAll.
func (c *Cache) Load(ctx context.Context) error {
	data, err := db.GetOne(ctx, c.store, c.key)
	if errors.Is(err, db.ErrKeyNotFound) {
		c.replace(make(map[string]vector.Vector), 0)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load embeddings: %w: %w", domain.ErrStorageFailure, err)
	}

	c.mu.RLock()
	dims := c.dims
	c.mu.RUnlock()

	doc, err := decode(data, dims)
	if err != nil {
		return err
	}
	if len(doc.dropped) > 0 {
		c.logger.Warn("Dropped invalid cached embeddings",
			zap.Int("count", len(doc.dropped)),
			zap.Strings("ids", doc.dropped),
		)
	}
	c.replace(doc.vectors, doc.dims)

	c.logger.Debug("Embedding cache loaded", zap.Int("entries", len(doc.vectors)), zap.Int("dimensions", doc.dims))
	return nil
}

func (c *Cache) replace(vectors map[string]vector.Vector, dims int) {
	c.mu.Lock()
	c.vectors = vectors
	if dims != 0 {
		c.dims = dims
	}
	n := len(c.vectors)
	c.mu.Unlock()
	metrics.EmbeddingCacheEntries.Set(float64(n))
}

// EnsureAll embeds every entry whose id is absent, in input order, and
// flushes once if anything was added. Returns the number of vectors this
// call computed. Concurrent calls share the computation of an id.
// On failure the vectors computed so far are kept and flushed.
func (c *Cache) EnsureAll(ctx context.Context, entries []Entry) (int, error) {
	updated := 0
	for _, e := range entries {
		if c.has(e.ID) {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

		computed, err := c.fill(ctx, e)
		if err != nil {
			if updated > 0 {
				if ferr := c.flush(ctx); ferr != nil {
					c.logger.Error("Failed to flush partial embeddings", zap.Error(ferr))
				}
			}
			return updated, fmt.Errorf("ensure embedding for %s: %w", e.ID, err)
		}
		if computed {
			updated++
		}
	}

	if updated == 0 {
		return 0, nil
	}
	c.logger.Debug("Embedding cache filled", zap.Int("updated", updated))
	return updated, c.flush(ctx)
}

// fill computes one vector. Only the caller that ran the computation reports computed=true.
func (c *Cache) fill(ctx context.Context, e Entry) (bool, error) {
	computed := false
	_, err, _ := c.inflight.Do(e.ID, func() (any, error) {
		if c.has(e.ID) {
			return nil, nil
		}
		v, err := c.embedder.Embed(ctx, e.Text)
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		if err := c.put(e.ID, v); err != nil {
			return nil, err
		}
		computed = true
		return nil, nil
	})
	return computed, err //nolint:wrapcheck // wrapped inside the flight
}

func (c *Cache) has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.vectors[id]
	return ok
}

func (c *Cache) put(id string, v vector.Vector) error {
	if err := vector.Validate(v); err != nil {
		return err //nolint:wrapcheck // already a domain sentinel
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dims == 0 {
		c.dims = len(v)
	}
	if len(v) != c.dims {
		return fmt.Errorf("got %d dimensions, cache holds %d: %w", len(v), c.dims, domain.ErrInvalidVector)
	}
	c.vectors[id] = v.Clone()
	metrics.EmbeddingCacheEntries.Set(float64(len(c.vectors)))
	return nil
}

// Prune removes every entry whose id is not in liveIDs and flushes only if
// something was removed.
func (c *Cache) Prune(ctx context.Context, liveIDs []string) (bool, error) {
	live := make(map[string]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}

	c.mu.Lock()
	removed := 0
	for id := range c.vectors {
		if _, ok := live[id]; !ok {
			delete(c.vectors, id)
			removed++
		}
	}
	n := len(c.vectors)
	c.mu.Unlock()

	if removed == 0 {
		return false, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("pruned").Add(float64(removed))
	metrics.EmbeddingCacheEntries.Set(float64(n))
	c.logger.Debug("Pruned orphan embeddings", zap.Int("removed", removed))
	return true, c.flush(ctx)
}

// Get returns the cached vector for id. It never computes.
// The returned vector must not be modified.
func (c *Cache) Get(id string) (vector.Vector, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrMissingEmbedding)
	}
	return v, nil
}

// Delete removes a single entry. Reports whether it was present.
func (c *Cache) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	_, ok := c.vectors[id]
	delete(c.vectors, id)
	n := len(c.vectors)
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("pruned").Inc()
	metrics.EmbeddingCacheEntries.Set(float64(n))
	return true, c.flush(ctx)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Dimensions returns the cache vector width, or 0 before the first vector.
func (c *Cache) Dimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dims
}

// IDs returns the cached ids in sorted order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.vectors))
	for id := range c.vectors {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// flush persists a snapshot of the map. Flushes are serialized so a slower
// older snapshot never overwrites a newer one.
func (c *Cache) flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	data, err := encode(c.vectors)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("flush embeddings: %w: %w", domain.ErrStorageFailure, err)
	}

	if err := c.store.Set(ctx, map[string][]byte{c.key: data}); err != nil {
		c.logger.Warn("Failed to persist embedding cache", zap.Error(err))
		return fmt.Errorf("flush embeddings: %w: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
