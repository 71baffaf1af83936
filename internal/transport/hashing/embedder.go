// Package hashing implements an offline embedding runtime based on feature hashing.
// Vectors are deterministic for a given text and dimension, so cached
// embeddings stay valid across restarts without any model files.
package hashing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/metrics"
)

// DefaultDimensions matches the default sentence-transformer width.
const DefaultDimensions = 384

const runtimeName = "hashing"

// Embedder maps unigrams and bigrams of a text into a signed hashed vector.
type Embedder struct {
	dimensions int
	model      string
}

// NewEmbedder creates a hashing runtime. dims <= 0 falls back to DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dimensions: dims, model: fmt.Sprintf("hashing-%d", dims)}
}

// Init is a no-op; the runtime has no external resources.
func (e *Embedder) Init(_ context.Context) error { return nil }

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(_ context.Context) error { return nil }

// Dimensions returns the configured vector width.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("hashing embed: %w", err)
	}

	start := time.Now()
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(runtimeName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(runtimeName, e.model, "no_tokens").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("text has no indexable tokens: %w", domain.ErrEmbeddingFailed)
	}

	vec := make([]float64, e.dimensions)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, f := range vec {
		norm += f * f
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	if norm > 0 {
		for i, f := range vec {
			out[i] = float32(f / norm)
		}
	} else {
		// All features cancelled out; keep the vector usable for cosine.
		out[0] = 1
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(runtimeName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(runtimeName, e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{
		Embedding:    out,
		PromptTokens: len(tokens),
		TotalTokens:  len(tokens),
	}, nil
}

func (e *Embedder) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(len(vec))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
