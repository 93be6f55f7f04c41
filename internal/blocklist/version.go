package blocklist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// VersionStore tracks a per-tenant ruleset version. Any change to a tenant's entries,
// overrides or settings bumps it, invalidating compiled rulesets on every replica.
type VersionStore interface {
	Current(ctx context.Context, tenantSchema string) (int64, error)
	Bump(ctx context.Context, tenantSchema string) error
}

// MemoryVersionStore keeps versions in process. It only suits single-replica deployments.
type MemoryVersionStore struct {
	mu       sync.Mutex
	versions map[string]int64
}

// NewMemoryVersionStore creates an empty MemoryVersionStore.
func NewMemoryVersionStore() *MemoryVersionStore {
	return &MemoryVersionStore{versions: make(map[string]int64)}
}

// Current returns the version of tenantSchema, 0 if it was never bumped.
func (s *MemoryVersionStore) Current(_ context.Context, tenantSchema string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[tenantSchema], nil
}

// Bump increments the version of tenantSchema.
func (s *MemoryVersionStore) Bump(_ context.Context, tenantSchema string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[tenantSchema]++
	return nil
}

// RedisVersionStore keeps versions in Redis so that replicas share them.
type RedisVersionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisVersionStore creates a RedisVersionStore using client.
func NewRedisVersionStore(client redis.UniversalClient) *RedisVersionStore {
	return &RedisVersionStore{client: client, prefix: "blocklist:version:"}
}

func (s *RedisVersionStore) key(tenantSchema string) string {
	return s.prefix + tenantSchema
}

// Current returns the version of tenantSchema, 0 if the key does not exist.
func (s *RedisVersionStore) Current(ctx context.Context, tenantSchema string) (int64, error) {
	v, err := s.client.Get(ctx, s.key(tenantSchema)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading ruleset version: %w", err)
	}
	return v, nil
}

// Bump increments the version of tenantSchema.
func (s *RedisVersionStore) Bump(ctx context.Context, tenantSchema string) error {
	if err := s.client.Incr(ctx, s.key(tenantSchema)).Err(); err != nil {
		return fmt.Errorf("bumping ruleset version: %w", err)
	}
	return nil
}
