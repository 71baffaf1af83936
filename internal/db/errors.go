package db

import "errors"

// Sentinel errors for storage area operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrQuotaExceeded = errors.New("db: quota exceeded")
	ErrClosed        = errors.New("db: area closed")
)

// Op constants name the area operation for error context.
const (
	OpGet    = "GET"
	OpSet    = "SET"
	OpRemove = "REMOVE"
	OpPing   = "PING"
	OpOpen   = "OPEN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
