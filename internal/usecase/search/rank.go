package search

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/result"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
)

// Rank scores items by cosine similarity to query, highest first.
// Ties keep input order. Every item must already have a cached vector.
func Rank(query vector.Vector, items []item.Item, vectors VectorSource) ([]result.Result, error) {
	out := make([]result.Result, 0, len(items))
	for i := range items {
		id := items[i].ID()
		v, err := vectors.Get(id)
		if err != nil {
			return nil, fmt.Errorf("rank: %w", err)
		}
		score, err := vector.CosineSimilarity(query, v)
		if err != nil {
			return nil, fmt.Errorf("rank item %s: %w", id, err)
		}
		out = append(out, result.New(items[i], score))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out, nil
}

// postFilter applies min_score and limit to ranked results.
// Requests carry minScore in [0, 1]; 0 disables the filter.
func postFilter(results []result.Result, minScore float64, limit int) []result.Result {
	if minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score() >= minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
