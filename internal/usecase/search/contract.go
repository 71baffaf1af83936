package search

import (
	"context"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
	"github.com/kailas-cloud/snipdex/internal/repository/embcache"
)

// VectorSource resolves cached vectors without computing them.
type VectorSource interface {
	Get(id string) (vector.Vector, error)
}

// Cache guarantees vectors for items before ranking.
type Cache interface {
	VectorSource
	EnsureAll(ctx context.Context, entries []embcache.Entry) (int, error)
}

// ItemLoader reads every domain's items in display order.
type ItemLoader interface {
	LoadAll(ctx context.Context) ([]item.Item, error)
}

// QueryEmbedder vectorizes search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (vector.Vector, error)
}
