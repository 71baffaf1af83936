package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/snipdex/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	MaxLimit       = 1000
)

// Request is a validated search query.
type Request struct {
	query    string
	limit    int
	minScore float64
}

// New validates and normalizes search parameters.
// An empty or whitespace query is valid and means "show the unranked list".
// limit <= 0 returns every ranked item; minScore filters after ranking,
// and 0 keeps every score.
func New(query string, limit int, minScore float64) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidInput)
	}
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("min_score must be between 0 and 1: %w", domain.ErrInvalidInput)
	}

	return Request{
		query:    strings.TrimSpace(query),
		limit:    limit,
		minScore: minScore,
	}, nil
}

// Query returns the trimmed search query text.
func (r *Request) Query() string { return r.query }

// IsEmpty reports whether the query bypasses embedding.
func (r *Request) IsEmpty() bool { return r.query == "" }

// Limit returns the maximum results to return (0 = unlimited).
func (r *Request) Limit() int { return r.limit }

// MinScore returns the minimum similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }
