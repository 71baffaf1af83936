// Package snippet stores ordered item sequences, one per domain, each under
// a fixed key of the domain's storage area.
package snippet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/db"
	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
)

// Area is the consumer interface for a domain's storage (ISP).
type Area interface {
	db.Getter
	db.Setter
}

// Store is a uniform view over the item domains. Read-modify-write
// sequences are serialized so move and delete are atomic with respect to
// each other.
type Store struct {
	order  []item.Domain
	areas  map[item.Domain]Area
	key    string
	logger *zap.Logger

	mu sync.Mutex
}

// NewStore creates a store over areas, listing domains in order.
func NewStore(order []item.Domain, areas map[item.Domain]Area, logger *zap.Logger) (*Store, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("at least one domain is required: %w", domain.ErrInvalidInput)
	}
	for _, d := range order {
		if !d.IsValid() {
			return nil, fmt.Errorf("unknown domain %q: %w", d, domain.ErrInvalidInput)
		}
		if areas[d] == nil {
			return nil, fmt.Errorf("no storage area for domain %q: %w", d, domain.ErrInvalidInput)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		order:  slices.Clone(order),
		areas:  areas,
		key:    domain.SnippetsKey,
		logger: logger,
	}, nil
}

// Domains returns the configured domains in display order.
func (s *Store) Domains() []item.Domain {
	return slices.Clone(s.order)
}

// Load returns the items of d in stored order. Backfilled ids are persisted
// before returning.
func (s *Store) Load(ctx context.Context, d item.Domain) ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, d)
}

// LoadAll returns the items of every domain, domains in display order.
func (s *Store) LoadAll(ctx context.Context) ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []item.Item
	for _, d := range s.order {
		items, err := s.load(ctx, d)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// Save replaces the items of d.
func (s *Store) Save(ctx context.Context, d item.Domain, items []item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, d, items)
}

// Append adds it at the end of its domain.
func (s *Store) Append(ctx context.Context, it item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := it.Domain()
	items, err := s.load(ctx, d)
	if err != nil {
		return err
	}
	if item.IndexOf(items, it.ID()) >= 0 {
		return domain.NewItemError(it.ID(), string(d), domain.ErrDuplicateInTarget)
	}
	return s.save(ctx, d, append(items, it))
}

// MoveItem transfers an item between domains, appending it to the target.
// Either both writes land or neither does: the target is written first
// and restored if the source write fails.
func (s *Store) MoveItem(ctx context.Context, id string, from, to item.Domain) (item.Item, error) {
	if from == to {
		return item.Item{}, fmt.Errorf("source and target domain are both %q: %w", from, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.load(ctx, from)
	if err != nil {
		return item.Item{}, err
	}
	idx := item.IndexOf(src, id)
	if idx < 0 {
		return item.Item{}, domain.NewItemError(id, string(from), domain.ErrNotFound)
	}
	dst, err := s.load(ctx, to)
	if err != nil {
		return item.Item{}, err
	}
	if item.IndexOf(dst, id) >= 0 {
		return item.Item{}, domain.NewItemError(id, string(to), domain.ErrDuplicateInTarget)
	}

	moved := src[idx].WithDomain(to)
	if err := s.save(ctx, to, append(slices.Clone(dst), moved)); err != nil {
		return item.Item{}, err
	}
	if err := s.save(ctx, from, slices.Delete(slices.Clone(src), idx, idx+1)); err != nil {
		if rbErr := s.save(ctx, to, dst); rbErr != nil {
			s.logger.Error("Failed to roll back move target",
				zap.String("id", id),
				zap.String("to", string(to)),
				zap.Error(rbErr),
			)
			return item.Item{}, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return item.Item{}, err
	}

	s.logger.Debug("Moved snippet", zap.String("id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	return moved, nil
}

// DeleteItem removes an item from d and returns it.
func (s *Store) DeleteItem(ctx context.Context, d item.Domain, id string) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, d)
	if err != nil {
		return item.Item{}, err
	}
	idx := item.IndexOf(items, id)
	if idx < 0 {
		return item.Item{}, domain.NewItemError(id, string(d), domain.ErrNotFound)
	}
	removed := items[idx]
	if err := s.save(ctx, d, slices.Delete(items, idx, idx+1)); err != nil {
		return item.Item{}, err
	}
	return removed, nil
}

// Clear removes every item of d and returns how many were removed.
func (s *Store) Clear(ctx context.Context, d item.Domain) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, d)
	if err != nil {
		return 0, err
	}
	if err := s.save(ctx, d, nil); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Store) area(d item.Domain) (Area, error) {
	a, ok := s.areas[d]
	if !ok || !slices.Contains(s.order, d) {
		return nil, fmt.Errorf("domain %q is not configured: %w", d, domain.ErrInvalidInput)
	}
	return a, nil
}

func (s *Store) load(ctx context.Context, d item.Domain) ([]item.Item, error) {
	a, err := s.area(d)
	if err != nil {
		return nil, err
	}
	data, err := db.GetOne(ctx, a, s.key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s snippets: %w: %w", d, domain.ErrStorageFailure, err)
	}

	doc, err := decode(data, d)
	if err != nil {
		return nil, err
	}
	if doc.dropped > 0 {
		s.logger.Warn("Dropped invalid stored snippets", zap.String("domain", string(d)), zap.Int("count", doc.dropped))
	}
	if doc.backfilled > 0 {
		if err := s.save(ctx, d, doc.items); err != nil {
			return nil, fmt.Errorf("persist backfilled ids: %w", err)
		}
		s.logger.Info("Backfilled snippet ids", zap.String("domain", string(d)), zap.Int("count", doc.backfilled))
	}
	return doc.items, nil
}

func (s *Store) save(ctx context.Context, d item.Domain, items []item.Item) error {
	a, err := s.area(d)
	if err != nil {
		return err
	}
	data, err := encode(items)
	if err != nil {
		return fmt.Errorf("save %s snippets: %w: %w", d, domain.ErrStorageFailure, err)
	}
	if err := a.Set(ctx, map[string][]byte{s.key: data}); err != nil {
		return fmt.Errorf("save %s snippets: %w: %w", d, domain.ErrStorageFailure, err)
	}
	return nil
}
