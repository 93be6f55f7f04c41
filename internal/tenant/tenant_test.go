package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "tenant_acme", SchemaName("acme"))
}

func TestTable_QuotesIdentifiers(t *testing.T) {
	assert.Equal(t, `"tenant_acme"."talents"`, Table("tenant_acme", "talents"))
	assert.Equal(t, `"tenant_x""y"."t"`, Table(`tenant_x"y`, "t"))
}

func TestCodeRegex(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"acme", true},
		{"acme_jp", true},
		{"a1", true},
		{"a", false},
		{"1acme", false},
		{"Acme", false},
		{"acme-jp", false},
		{"abcdefghijklmnopqrstuvwxyzabcdef", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, CodeRegex.MatchString(tt.code))
		})
	}
}

type countingLookup struct {
	calls  int
	tenant *Tenant
	err    error
}

func (l *countingLookup) GetByCode(_ context.Context, _ string) (*Tenant, error) {
	l.calls++
	return l.tenant, l.err
}

func TestCache_HitWithinTTL(t *testing.T) {
	src := &countingLookup{tenant: &Tenant{Code: "acme", SchemaName: "tenant_acme"}}
	c := NewCache(src, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := c.GetByCode(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "tenant_acme", got.SchemaName)
	}
	assert.Equal(t, 1, src.calls)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	src := &countingLookup{tenant: &Tenant{Code: "acme"}}
	c := NewCache(src, time.Minute)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.GetByCode(context.Background(), "acme")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.GetByCode(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	src := &countingLookup{err: ErrTenantNotFound}
	c := NewCache(src, time.Minute)

	_, err := c.GetByCode(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrTenantNotFound))
	_, err = c.GetByCode(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrTenantNotFound))

	assert.Equal(t, 2, src.calls)
}

func TestCache_Invalidate(t *testing.T) {
	src := &countingLookup{tenant: &Tenant{Code: "acme"}}
	c := NewCache(src, time.Minute)

	_, _ = c.GetByCode(context.Background(), "acme")
	c.Invalidate("acme")
	_, _ = c.GetByCode(context.Background(), "acme")

	assert.Equal(t, 2, src.calls)
}
