package result

import "github.com/kailas-cloud/snipdex/internal/domain/item"

// Result is a single ranked snippet.
type Result struct {
	item  item.Item
	score float64
}

// New creates a search result.
func New(it item.Item, score float64) Result {
	return Result{item: it, score: score}
}

// Item returns the ranked snippet.
func (r *Result) Item() item.Item { return r.item }

// ID returns the snippet identifier.
func (r *Result) ID() string { return r.item.ID() }

// Score returns the cosine similarity to the query.
func (r *Result) Score() float64 { return r.score }

// Origin returns the domain the snippet was found in.
func (r *Result) Origin() item.Domain { return r.item.Domain() }

// Unranked wraps items as results with a zero score, preserving order.
func Unranked(items []item.Item) []Result {
	out := make([]Result, len(items))
	for i := range items {
		out[i] = New(items[i], 0)
	}
	return out
}
