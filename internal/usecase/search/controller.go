package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/request"
	"github.com/kailas-cloud/snipdex/internal/domain/search/result"
	"github.com/kailas-cloud/snipdex/internal/domain/search/state"
	"github.com/kailas-cloud/snipdex/internal/metrics"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
)

// Snapshot is the currently visible search view.
type Snapshot struct {
	Token   uint64
	State   state.State
	Query   string
	Results []result.Result
	Status  string
}

// Response is the outcome of one Search call. A superseded response carries
// only its token: a newer query owns the view.
type Response struct {
	Token      uint64
	State      state.State
	Results    []result.Result
	Superseded bool
}

// Controller runs queries against every domain and exposes only the newest
// query's outcome.
type Controller struct {
	items    ItemLoader
	cache    Cache
	embedder QueryEmbedder
	logger   *zap.Logger

	latest atomic.Uint64

	mu   sync.Mutex
	view Snapshot
}

// NewController creates a search controller in the Idle state.
func NewController(items ItemLoader, cache Cache, embedder QueryEmbedder, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		items:    items,
		cache:    cache,
		embedder: embedder,
		logger:   logger,
		view:     Snapshot{State: state.Idle},
	}
}

// Snapshot returns a copy of the visible view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.view
	s.Results = slices.Clone(c.view.Results)
	return s
}

// Latest returns the newest issued token.
func (c *Controller) Latest() uint64 { return c.latest.Load() }

// Search issues a new token and runs the query. The computation is detached
// from ctx cancellation: an abandoned query finishes and is discarded.
// Failures are returned alongside a Failed response that keeps the previous results.
func (c *Controller) Search(ctx context.Context, req request.Request) (Response, error) {
	token := c.latest.Add(1)
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	resp, err := c.run(ctx, token, req)

	outcome := string(resp.State)
	if resp.Superseded {
		outcome = "superseded"
	}
	metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

func (c *Controller) run(ctx context.Context, token uint64, req request.Request) (Response, error) {
	if req.IsEmpty() {
		items, err := c.items.LoadAll(ctx)
		if c.stale(token) {
			return superseded(token), nil
		}
		if err != nil {
			return c.fail(token, req, fmt.Errorf("load items: %w", err))
		}
		return c.commit(token, state.Idle, req, postFilter(result.Unranked(items), 0, req.Limit()))
	}

	if !c.transition(token, state.Preparing, req) {
		return superseded(token), nil
	}
	items, err := c.items.LoadAll(ctx)
	if c.stale(token) {
		return superseded(token), nil
	}
	if err != nil {
		return c.fail(token, req, fmt.Errorf("load items: %w", err))
	}
	_, err = c.cache.EnsureAll(ctx, entries(items))
	if c.stale(token) {
		return superseded(token), nil
	}
	if err != nil {
		return c.fail(token, req, fmt.Errorf("ensure embeddings: %w", err))
	}

	if !c.transition(token, state.Ranking, req) {
		return superseded(token), nil
	}
	qv, err := c.embedder.EmbedQuery(ctx, req.Query())
	if c.stale(token) {
		return superseded(token), nil
	}
	if err != nil {
		return c.fail(token, req, fmt.Errorf("embed query: %w", err))
	}
	// Items deleted while the query was embedding have left the cache.
	ranked, err := Rank(qv, cached(items, c.cache), c.cache)
	if err != nil {
		return c.fail(token, req, err)
	}

	return c.commit(token, state.Done, req, postFilter(ranked, req.MinScore(), req.Limit()))
}

func (c *Controller) stale(token uint64) bool {
	return c.latest.Load() != token
}

// transition moves the visible state forward for an in-flight query,
// leaving the displayed results untouched.
func (c *Controller) transition(token uint64, s state.State, req request.Request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(token) {
		return false
	}
	c.view.Token = token
	c.view.State = s
	c.view.Query = req.Query()
	c.view.Status = ""
	return true
}

func (c *Controller) commit(
	token uint64, s state.State, req request.Request, results []result.Result,
) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(token) {
		return superseded(token), nil
	}
	c.view = Snapshot{Token: token, State: s, Query: req.Query(), Results: results}
	return Response{Token: token, State: s, Results: slices.Clone(results)}, nil
}

func (c *Controller) fail(token uint64, req request.Request, err error) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale(token) {
		return superseded(token), nil
	}
	c.view.Token = token
	c.view.State = state.Failed
	c.view.Query = req.Query()
	c.view.Status = StatusMessage(err)

	c.logger.Warn("Search failed",
		zap.Uint64("token", token),
		zap.String("query", req.Query()),
		zap.Error(err),
	)
	return Response{Token: token, State: state.Failed, Results: slices.Clone(c.view.Results)}, err
}

// cached keeps the items that still have a vector.
func cached(items []item.Item, vectors VectorSource) []item.Item {
	out := make([]item.Item, 0, len(items))
	for i := range items {
		if _, err := vectors.Get(items[i].ID()); errors.Is(err, domain.ErrMissingEmbedding) {
			continue
		}
		out = append(out, items[i])
	}
	return out
}

func superseded(token uint64) Response {
	return Response{Token: token, Superseded: true}
}

func entries(items []item.Item) []embcache.Entry {
	out := make([]embcache.Entry, len(items))
	for i := range items {
		out[i] = embcache.Entry{ID: items[i].ID(), Text: items[i].Text()}
	}
	return out
}

// StatusMessage returns the user-facing text for a failed query.
func StatusMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbedderUnavailable):
		return "The embedding model is not available yet. Try again in a moment."
	case errors.Is(err, domain.ErrEmbeddingFailed):
		return "Could not compute embeddings for this search. Try again."
	case errors.Is(err, domain.ErrStorageFailure):
		return "Could not read saved snippets."
	case errors.Is(err, domain.ErrInvalidVector), errors.Is(err, domain.ErrMissingEmbedding):
		return "The embedding cache is inconsistent. Reload and try again."
	default:
		return "Search failed."
	}
}
