package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals empty or malformed text, id or domain.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidVector signals a dimension mismatch, a non-finite component or a zero-norm vector.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrMissingEmbedding signals a read of a vector that was never ensured.
	ErrMissingEmbedding = errors.New("missing embedding")
	// ErrEmbedderUnavailable signals that the embedding runtime could not be initialized.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")
	// ErrEmbeddingFailed signals a downstream embedding computation failure.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrStorageFailure signals a persistence read or write error.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNotFound signals a missing item.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateInTarget signals that a move target already holds the item.
	ErrDuplicateInTarget = errors.New("duplicate in target domain")
)

// ItemError wraps a sentinel with the item id and domain it refers to.
type ItemError struct {
	ID     string
	Domain string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s in %s: %s", e.ID, e.Domain, e.Err.Error())
}

func (e *ItemError) Unwrap() error { return e.Err }

// NewItemError creates an ItemError.
func NewItemError(id, domain string, err error) error {
	return &ItemError{ID: id, Domain: domain, Err: err}
}

// IsRetryable reports whether the failure is an external collaborator failure
// the user may retry by reissuing the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbedderUnavailable) ||
		errors.Is(err, ErrEmbeddingFailed) ||
		errors.Is(err, ErrStorageFailure)
}
