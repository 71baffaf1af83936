package snippet

import (
	"context"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
)

// Store defines the storage contract for snippets across domains.
type Store interface {
	Domains() []item.Domain
	Load(ctx context.Context, d item.Domain) ([]item.Item, error)
	LoadAll(ctx context.Context) ([]item.Item, error)
	Append(ctx context.Context, it item.Item) error
	MoveItem(ctx context.Context, id string, from, to item.Domain) (item.Item, error)
	DeleteItem(ctx context.Context, d item.Domain, id string) (item.Item, error)
	Clear(ctx context.Context, d item.Domain) (int, error)
}

// Cache is the embedding cache as seen by snippet lifecycle operations.
type Cache interface {
	Load(ctx context.Context) error
	EnsureAll(ctx context.Context, entries []embcache.Entry) (int, error)
	Prune(ctx context.Context, liveIDs []string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
