package health

import "context"

// Pinger checks storage area availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding runtime availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
