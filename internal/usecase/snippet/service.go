// Package snippet coordinates snippet lifecycle operations with the
// embedding cache so that cached vectors track live items.
package snippet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
)

// CreateInput is a captured selection.
type CreateInput struct {
	Text      string
	Domain    item.Domain
	SourceURL string
	Title     string
}

// Service handles snippet CRUD with lazy vectorization.
type Service struct {
	store  Store
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// New creates a snippet service.
func New(store Store, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// WithClock overrides the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Open loads the embedding cache and prunes entries of items that no longer
// exist. Call once per session before serving requests.
func (s *Service) Open(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		return fmt.Errorf("load embedding cache: %w", err)
	}
	pruned, err := s.checkpoint(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Snippet store opened", zap.Bool("pruned", pruned))
	return nil
}

// Create stores a new snippet and computes its embedding. If embedding
// fails the stored item is still returned together with the error; the
// next search fills the missing vector.
func (s *Service) Create(ctx context.Context, in CreateInput) (item.Item, error) {
	it, err := item.New(in.Text, in.Domain, in.SourceURL, in.Title, s.now())
	if err != nil {
		return item.Item{}, err //nolint:wrapcheck // domain validation error
	}
	if err := s.store.Append(ctx, it); err != nil {
		return item.Item{}, fmt.Errorf("store snippet: %w", err)
	}

	entry := embcache.Entry{ID: it.ID(), Text: it.Text()}
	if _, err := s.cache.EnsureAll(ctx, []embcache.Entry{entry}); err != nil {
		s.logger.Warn("Snippet stored without embedding",
			zap.String("id", it.ID()),
			zap.String("domain", string(it.Domain())),
			zap.Error(err),
		)
		return it, fmt.Errorf("embed snippet: %w", err)
	}

	s.logger.Debug("Snippet created", zap.String("id", it.ID()), zap.String("domain", string(it.Domain())))
	return it, nil
}

// List returns the items of one domain, or of every domain in display order
// when d is empty.
func (s *Service) List(ctx context.Context, d item.Domain) ([]item.Item, error) {
	var (
		items []item.Item
		err   error
	)
	if d == "" {
		items, err = s.store.LoadAll(ctx)
	} else {
		items, err = s.store.Load(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	return items, nil
}

// Move transfers a snippet between domains. The cached vector is keyed by
// id only, so it survives the move untouched.
func (s *Service) Move(ctx context.Context, id string, from, to item.Domain) (item.Item, error) {
	moved, err := s.store.MoveItem(ctx, id, from, to)
	if err != nil {
		return item.Item{}, fmt.Errorf("move snippet: %w", err)
	}
	return moved, nil
}

// Delete removes a snippet and its cached vector.
func (s *Service) Delete(ctx context.Context, d item.Domain, id string) error {
	if _, err := s.store.DeleteItem(ctx, d, id); err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	if _, err := s.cache.Delete(ctx, id); err != nil {
		return fmt.Errorf("drop cached embedding: %w", err)
	}
	return nil
}

// Clear removes every snippet of d and prunes the cache. Returns how many
// snippets were removed.
func (s *Service) Clear(ctx context.Context, d item.Domain) (int, error) {
	n, err := s.store.Clear(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", d, err)
	}
	if _, err := s.checkpoint(ctx); err != nil {
		return n, err
	}
	s.logger.Info("Domain cleared", zap.String("domain", string(d)), zap.Int("removed", n))
	return n, nil
}

// checkpoint prunes the cache down to the ids of every live item.
func (s *Service) checkpoint(ctx context.Context) (bool, error) {
	items, err := s.store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load snippets: %w", err)
	}
	changed, err := s.cache.Prune(ctx, item.IDs(items))
	if err != nil {
		return changed, fmt.Errorf("prune embedding cache: %w", err)
	}
	return changed, nil
}
