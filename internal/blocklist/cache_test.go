package blocklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/scope"
)

type flakyVersions struct {
	*MemoryVersionStore
	err error
}

func (f *flakyVersions) Current(ctx context.Context, schema string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.MemoryVersionStore.Current(ctx, schema)
}

func TestRulesetCache(t *testing.T) {
	ctx := context.Background()
	versions := &flakyVersions{MemoryVersionStore: NewMemoryVersionStore()}
	c := NewRulesetCache(versions, time.Minute, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	chain := scope.Chain{{Type: scope.TypeTenant, ID: uuid.New()}}
	builds := 0
	build := func(context.Context) (*Ruleset, error) {
		builds++
		return &Ruleset{Chain: chain}, nil
	}

	first, err := c.Get(ctx, "tenant_a", chain, build)
	require.NoError(t, err)
	second, err := c.Get(ctx, "tenant_a", chain, build)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	t.Run("other tenant is separate", func(t *testing.T) {
		_, err := c.Get(ctx, "tenant_b", chain, build)
		require.NoError(t, err)
		assert.Equal(t, 2, builds)
	})

	t.Run("version bump rebuilds", func(t *testing.T) {
		require.NoError(t, versions.Bump(ctx, "tenant_a"))
		rebuilt, err := c.Get(ctx, "tenant_a", chain, build)
		require.NoError(t, err)
		assert.NotSame(t, first, rebuilt)
		assert.Equal(t, 3, builds)
	})

	t.Run("expired entry rebuilds", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := c.Get(ctx, "tenant_a", chain, build)
		require.NoError(t, err)
		assert.Equal(t, 4, builds)
		// tenant_b expired too and was evicted.
		assert.Equal(t, 1, c.Len())
	})

	t.Run("unreachable version store serves cached entry", func(t *testing.T) {
		versions.err = errors.New("connection refused")
		defer func() { versions.err = nil }()

		_, err := c.Get(ctx, "tenant_a", chain, build)
		require.NoError(t, err)
		assert.Equal(t, 4, builds)

		_, err = c.Get(ctx, "tenant_c", chain, build)
		require.NoError(t, err)
		_, err = c.Get(ctx, "tenant_c", chain, build)
		require.NoError(t, err)
		assert.Equal(t, 6, builds)
	})

	t.Run("build error is returned and not cached", func(t *testing.T) {
		boom := errors.New("boom")
		other := scope.Chain{{Type: scope.TypeTenant, ID: uuid.New()}}
		_, err := c.Get(ctx, "tenant_a", other, func(context.Context) (*Ruleset, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)

		_, err = c.Get(ctx, "tenant_a", other, build)
		require.NoError(t, err)
		assert.Equal(t, 7, builds)
	})
}
