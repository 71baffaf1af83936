package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/snipdex/internal/db"
)

// Compile-time check: Store implements db.Area.
var _ db.Area = (*Store)(nil)

// Config holds connection parameters for a Redis-backed area.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Namespace isolates one area's keys. It is wrapped in a hash tag so
	// multi-key commands stay in one cluster slot.
	Namespace string
}

// Store implements db.Area via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis area via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: keyPrefix(cfg.Namespace)}, nil
}

func keyPrefix(namespace string) string {
	if namespace == "" {
		namespace = "snipdex"
	}
	return "{" + namespace + "}:"
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}
