package tenant

import (
	"context"
	"sync"
	"time"
)

// Lookup resolves tenants by code.
type Lookup interface {
	GetByCode(ctx context.Context, code string) (*Tenant, error)
}

// Cache memoizes tenant lookups by code for a fixed TTL. Misses and errors are not cached.
type Cache struct {
	source Lookup
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// NewCache wraps source with a TTL cache.
func NewCache(source Lookup, ttl time.Duration) *Cache {
	return &Cache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// GetByCode returns the cached tenant or loads it from the source.
func (c *Cache) GetByCode(ctx context.Context, code string) (*Tenant, error) {
	c.mu.RLock()
	entry, ok := c.entries[code]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.tenant, nil
	}

	t, err := c.source.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[code] = cacheEntry{tenant: t, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return t, nil
}

// Invalidate drops a cached tenant.
func (c *Cache) Invalidate(code string) {
	c.mu.Lock()
	delete(c.entries, code)
	c.mu.Unlock()
}
