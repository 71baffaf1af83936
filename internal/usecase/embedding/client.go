package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
	"github.com/kailas-cloud/snipdex/internal/metrics"
)

const initKey = "init"

// Runtime is an embedding runtime with an expensive one-time warm-up.
type Runtime interface {
	domain.Embedder
	Init(ctx context.Context) error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Runtime             Runtime
	RuntimeName         string
	Model               string
	Dimensions          int // 0: fixed by the first vector
	DocumentInstruction string
	QueryInstruction    string
	Logger              *zap.Logger
}

// Client embeds snippets and queries through the worker boundary.
// The runtime is initialized once per session; failed attempts are retried on the next call.
type Client struct {
	runtime Runtime
	doc     *Worker
	query   *Worker
	logger  *zap.Logger

	initGroup singleflight.Group
	ready     atomic.Bool

	mu   sync.Mutex
	dims int
}

// NewClient creates an embedder client.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := NewInstrumentedEmbedder(cfg.Runtime, cfg.RuntimeName, cfg.Model, logger)
	return &Client{
		runtime: cfg.Runtime,
		doc:     NewWorker(domain.NewInstructionEmbedder(base, cfg.DocumentInstruction), logger),
		query:   NewWorker(domain.NewInstructionEmbedder(base, cfg.QueryInstruction), logger),
		logger:  logger,
		dims:    cfg.Dimensions,
	}
}

// Embed vectorizes snippet text.
func (c *Client) Embed(ctx context.Context, text string) (vector.Vector, error) {
	return c.embed(ctx, c.doc, text)
}

// EmbedQuery vectorizes a search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) (vector.Vector, error) {
	return c.embed(ctx, c.query, text)
}

// Ready reports whether the runtime finished initialization.
func (c *Client) Ready() bool { return c.ready.Load() }

// Dimensions returns the vector width, or 0 if not yet known.
func (c *Client) Dimensions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dims
}

// HealthCheck reports runtime availability without forcing initialization.
func (c *Client) HealthCheck(ctx context.Context) error {
	if hc, ok := c.runtime.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding runtime: %w: %w", domain.ErrEmbedderUnavailable, err)
		}
	}
	return nil
}

func (c *Client) embed(ctx context.Context, w *Worker, text string) (vector.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}

	resp := w.Handle(ctx, Request{Text: text})
	if err := resp.Err(); err != nil {
		return nil, err
	}

	v := vector.Vector(resp.Vector)
	if err := c.checkVector(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ensureInit shares one Init attempt between concurrent callers.
// The attempt is detached from the caller's cancellation so one abandoned
// request does not fail everyone awaiting it.
func (c *Client) ensureInit(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	_, err, _ := c.initGroup.Do(initKey, func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}
		if err := c.runtime.Init(context.WithoutCancel(ctx)); err != nil {
			metrics.EmbedderInitTotal.WithLabelValues("error").Inc()
			c.logger.Warn("Embedding runtime init failed", zap.Error(err))
			return nil, err
		}
		metrics.EmbedderInitTotal.WithLabelValues("success").Inc()
		c.ready.Store(true)
		c.logger.Info("Embedding runtime ready")
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmbedderUnavailable) {
			return fmt.Errorf("init embedder: %w", err)
		}
		return fmt.Errorf("init embedder: %w: %w", domain.ErrEmbedderUnavailable, err)
	}
	return nil
}

func (c *Client) checkVector(v vector.Vector) error {
	if err := vector.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dims == 0 {
		c.dims = len(v)
		return nil
	}
	if len(v) != c.dims {
		return fmt.Errorf("%w: %w: got %d dimensions, want %d",
			domain.ErrEmbeddingFailed, domain.ErrInvalidVector, len(v), c.dims)
	}
	return nil
}
