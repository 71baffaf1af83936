package db

import (
	"context"
	"fmt"
)

// QuotaArea rejects writes whose value exceeds a per-item byte quota.
// Rejected writes are not partially applied.
type QuotaArea struct {
	Area
	maxItemBytes int
}

// NewQuotaArea wraps an area with a per-item quota. maxItemBytes <= 0 disables the check.
func NewQuotaArea(inner Area, maxItemBytes int) *QuotaArea {
	return &QuotaArea{Area: inner, maxItemBytes: maxItemBytes}
}

// Set checks every value against the quota before delegating.
func (q *QuotaArea) Set(ctx context.Context, items map[string][]byte) error {
	if q.maxItemBytes > 0 {
		for k, v := range items {
			if size := len(k) + len(v); size > q.maxItemBytes {
				return &Error{Op: OpSet, Err: fmt.Errorf(
					"key %q is %d bytes, limit %d: %w", k, size, q.maxItemBytes, ErrQuotaExceeded,
				)}
			}
		}
	}
	return q.Area.Set(ctx, items) //nolint:wrapcheck // transparent decorator
}
