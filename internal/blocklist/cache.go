package blocklist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
)

// Ruleset is everything needed to check text for one scope chain.
type Ruleset struct {
	Chain    scope.Chain
	Policy   Policy
	Settings settings.Resolved
	Entries  []Entry
	Matcher  *Matcher
}

// RulesetCache keeps compiled rulesets per tenant and chain. An entry is served while its
// TTL has not elapsed and the tenant's version has not moved since it was built.
type RulesetCache struct {
	versions VersionStore
	ttl      time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.RWMutex
	entries map[rulesetKey]cachedRuleset
}

type rulesetKey struct {
	schema string
	chain  string
}

type cachedRuleset struct {
	ruleset   *Ruleset
	version   int64
	expiresAt time.Time
}

// NewRulesetCache creates a RulesetCache. A nil m disables metrics.
func NewRulesetCache(versions VersionStore, ttl time.Duration, m *metrics.Metrics) *RulesetCache {
	return &RulesetCache{
		versions: versions,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
		entries:  make(map[rulesetKey]cachedRuleset),
	}
}

// Get returns the cached ruleset of chain in schema, calling build on a miss.
// When the version store is unreachable, cached entries are served until their TTL.
func (c *RulesetCache) Get(ctx context.Context, schema string, chain scope.Chain, build func(ctx context.Context) (*Ruleset, error)) (*Ruleset, error) {
	key := rulesetKey{schema: schema, chain: chain.Key()}

	version, verr := c.versions.Current(ctx, schema)
	if verr != nil {
		slog.Warn("ruleset version unavailable, relying on ttl", "error", verr, "schema", schema)
	}

	now := c.now()
	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(cached.expiresAt) && (verr != nil || cached.version == version) {
		c.metrics.RulesetCacheHit(true)
		return cached.ruleset, nil
	}
	c.metrics.RulesetCacheHit(false)

	rs, err := build(ctx)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return rs, nil
	}

	c.mu.Lock()
	c.evictExpired(now)
	c.entries[key] = cachedRuleset{ruleset: rs, version: version, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return rs, nil
}

// Len returns the number of cached rulesets, expired ones included.
func (c *RulesetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictExpired must be called with mu held.
func (c *RulesetCache) evictExpired(now time.Time) {
	for k, v := range c.entries {
		if !now.Before(v.expiresAt) {
			delete(c.entries, k)
		}
	}
}
