// Package vector holds the fixed-length embedding vector type and cosine similarity.
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/snipdex/internal/domain"
)

// Vector is an embedding: a fixed-length sequence of finite components.
type Vector []float32

// Validate checks that v is non-empty and every component is finite.
func Validate(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector: %w", domain.ErrInvalidVector)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("non-finite component at %d: %w", i, domain.ErrInvalidVector)
		}
	}
	return nil
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v.
func Normalize(v []float32) (Vector, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	n := Norm(v)
	if n == 0 {
		return nil, fmt.Errorf("zero-norm vector: %w", domain.ErrInvalidVector)
	}
	out := make(Vector, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / n)
	}
	return out, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different length, non-finite components and zero-norm vectors
// fail with domain.ErrInvalidVector. The result is clamped to [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d: %w", len(a), len(b), domain.ErrInvalidVector)
	}
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("zero-norm vector: %w", domain.ErrInvalidVector)
	}

	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	return math.Max(-1, math.Min(1, sim)), nil
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and o have identical components.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}
