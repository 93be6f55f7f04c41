package blocklist_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

type mockRepo struct {
	createFn         func(ctx context.Context, schema string, e *blocklist.Entry) error
	getByIDFn        func(ctx context.Context, schema string, id uuid.UUID) (*blocklist.Entry, error)
	listByScopeFn    func(ctx context.Context, schema string, ref scope.Ref) ([]blocklist.Entry, error)
	listForChainFn   func(ctx context.Context, schema string, chain scope.Chain) ([]blocklist.Entry, error)
	updateFn         func(ctx context.Context, schema string, id uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error)
	deleteFn         func(ctx context.Context, schema string, id uuid.UUID) error
	listOverridesFn  func(ctx context.Context, schema string, chain scope.Chain) ([]blocklist.Override, error)
	setOverrideFn    func(ctx context.Context, schema string, o *blocklist.Override) error
	deleteOverrideFn func(ctx context.Context, schema string, entryID uuid.UUID, ref scope.Ref) error
}

func (m *mockRepo) Create(ctx context.Context, schema string, e *blocklist.Entry) error {
	if m.createFn != nil {
		return m.createFn(ctx, schema, e)
	}
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, schema string, id uuid.UUID) (*blocklist.Entry, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, schema, id)
	}
	return nil, blocklist.ErrEntryNotFound
}

func (m *mockRepo) ListByScope(ctx context.Context, schema string, ref scope.Ref) ([]blocklist.Entry, error) {
	if m.listByScopeFn != nil {
		return m.listByScopeFn(ctx, schema, ref)
	}
	return nil, nil
}

func (m *mockRepo) ListForChain(ctx context.Context, schema string, chain scope.Chain) ([]blocklist.Entry, error) {
	if m.listForChainFn != nil {
		return m.listForChainFn(ctx, schema, chain)
	}
	return nil, nil
}

func (m *mockRepo) Update(ctx context.Context, schema string, id uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, schema, id, fields)
	}
	return nil, blocklist.ErrEntryNotFound
}

func (m *mockRepo) Delete(ctx context.Context, schema string, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, schema, id)
	}
	return nil
}

func (m *mockRepo) ListOverrides(ctx context.Context, schema string, chain scope.Chain) ([]blocklist.Override, error) {
	if m.listOverridesFn != nil {
		return m.listOverridesFn(ctx, schema, chain)
	}
	return nil, nil
}

func (m *mockRepo) SetOverride(ctx context.Context, schema string, o *blocklist.Override) error {
	if m.setOverrideFn != nil {
		return m.setOverrideFn(ctx, schema, o)
	}
	return nil
}

func (m *mockRepo) DeleteOverride(ctx context.Context, schema string, entryID uuid.UUID, ref scope.Ref) error {
	if m.deleteOverrideFn != nil {
		return m.deleteOverrideFn(ctx, schema, entryID, ref)
	}
	return nil
}

// fakeResolver resolves the fixed chains of the test hierarchy and serves settings from memory.
type fakeResolver struct {
	values []settings.Value
}

func (f *fakeResolver) Chain(_ context.Context, _ *tenant.Tenant, ref scope.Ref) (scope.Chain, error) {
	switch ref {
	case tenantRef, scope.Ref{Type: scope.TypeTenant}:
		return scope.Chain{tenantRef}, nil
	case subsidiaryRef:
		return scope.Chain{tenantRef, subsidiaryRef}, nil
	case talentRef:
		return talentChain, nil
	}
	return nil, scope.ErrScopeNotFound
}

func (f *fakeResolver) ResolveChain(_ context.Context, _ string, chain scope.Chain) (settings.Resolved, error) {
	return settings.Resolve(settings.DefaultRegistry(), chain, f.values), nil
}

type recordingChanges struct {
	changes []auditlog.ChangeLog
}

func (r *recordingChanges) RecordChange(_ string, c auditlog.ChangeLog) {
	r.changes = append(r.changes, c)
}

var testTenant = &tenant.Tenant{
	ID:         tenantRef.ID,
	Code:       "acme",
	SchemaName: "tenant_acme",
	IsActive:   true,
}

type fixture struct {
	svc      *blocklist.Service
	repo     *mockRepo
	resolver *fakeResolver
	versions *blocklist.MemoryVersionStore
	changes  *recordingChanges
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &mockRepo{},
		resolver: &fakeResolver{},
		versions: blocklist.NewMemoryVersionStore(),
		changes:  &recordingChanges{},
	}
	cache := blocklist.NewRulesetCache(f.versions, time.Minute, nil)
	f.svc = blocklist.NewService(f.repo, f.resolver, blocklist.DefaultRegistry(), cache, f.versions, f.changes, nil)
	return f
}

func TestService_Test(t *testing.T) {
	f := newFixture()
	spam := owned(tenantRef, "spam", 0)
	spam.Action = blocklist.ActionReject
	spam.Severity = blocklist.SeverityHigh

	loads := 0
	f.repo.listForChainFn = func(_ context.Context, schema string, chain scope.Chain) ([]blocklist.Entry, error) {
		loads++
		assert.Equal(t, "tenant_acme", schema)
		return []blocklist.Entry{spam}, nil
	}

	res, err := f.svc.Test(context.Background(), testTenant, talentRef, "buy SPAM now")
	require.NoError(t, err)
	assert.True(t, res.IsBlocked)
	assert.Equal(t, blocklist.ActionReject, res.Action)
	assert.Equal(t, "buy **** now", res.FilteredText)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, spam.ID, res.Matches[0].EntryID)
	assert.Equal(t, tenantRef, res.Matches[0].Scope)

	_, err = f.svc.Test(context.Background(), testTenant, talentRef, "more spam")
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second check should use the cached ruleset")

	require.NoError(t, f.versions.Bump(context.Background(), "tenant_acme"))
	_, err = f.svc.Test(context.Background(), testTenant, talentRef, "more spam")
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestService_Test_Disabled(t *testing.T) {
	f := newFixture()
	f.resolver.values = []settings.Value{
		{Scope: subsidiaryRef, Key: settings.KeyBlocklistEnabled, Raw: json.RawMessage(`false`)},
	}
	f.repo.listForChainFn = func(context.Context, string, scope.Chain) ([]blocklist.Entry, error) {
		return []blocklist.Entry{owned(tenantRef, "spam", 0)}, nil
	}

	res, err := f.svc.Test(context.Background(), testTenant, talentRef, "spam")
	require.NoError(t, err)
	assert.False(t, res.IsBlocked)
	assert.Empty(t, res.Matches)
	assert.Equal(t, "spam", res.FilteredText)

	res, err = f.svc.Test(context.Background(), testTenant, tenantRef, "spam")
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func TestService_Test_Errors(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Test(context.Background(), testTenant, talentRef, strings.Repeat("a", blocklist.MaxTextLength+1))
	assert.ErrorIs(t, err, blocklist.ErrTextTooLong)

	_, err = f.svc.Test(context.Background(), testTenant, otherTalent, "text")
	assert.ErrorIs(t, err, scope.ErrScopeNotFound)
}

func TestService_Create(t *testing.T) {
	t.Run("stores entry on resolved scope", func(t *testing.T) {
		f := newFixture()
		var stored *blocklist.Entry
		f.repo.createFn = func(_ context.Context, _ string, e *blocklist.Entry) error {
			e.ID = uuid.New()
			stored = e
			return nil
		}

		e := &blocklist.Entry{
			Scope:       scope.Ref{Type: scope.TypeTenant},
			Name:        "spam",
			Pattern:     "spam",
			PatternType: blocklist.PatternKeyword,
			Severity:    blocklist.SeverityLow,
			Action:      blocklist.ActionFlag,
			IsActive:    true,
		}
		require.NoError(t, f.svc.Create(context.Background(), testTenant, e))

		require.NotNil(t, stored)
		assert.Equal(t, tenantRef, stored.Scope)
		v, _ := f.versions.Current(context.Background(), "tenant_acme")
		assert.Equal(t, int64(1), v)
		require.Len(t, f.changes.changes, 1)
		assert.Equal(t, "blocklist_entry", f.changes.changes[0].ObjectType)
		assert.Equal(t, auditlog.ActionCreate, f.changes.changes[0].Action)
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		f := newFixture()
		f.repo.createFn = func(context.Context, string, *blocklist.Entry) error {
			t.Fatal("repository should not be called")
			return nil
		}

		err := f.svc.Create(context.Background(), testTenant, &blocklist.Entry{
			Scope:       tenantRef,
			Pattern:     "x*",
			PatternType: blocklist.PatternRegex,
		})
		assert.ErrorIs(t, err, blocklist.ErrInvalidPattern)
		assert.Empty(t, f.changes.changes)
	})

	t.Run("duplicate is passed through without bump", func(t *testing.T) {
		f := newFixture()
		f.repo.createFn = func(context.Context, string, *blocklist.Entry) error {
			return blocklist.ErrDuplicatePattern
		}

		err := f.svc.Create(context.Background(), testTenant, &blocklist.Entry{
			Scope:       tenantRef,
			Pattern:     "spam",
			PatternType: blocklist.PatternKeyword,
		})
		assert.ErrorIs(t, err, blocklist.ErrDuplicatePattern)
		v, _ := f.versions.Current(context.Background(), "tenant_acme")
		assert.Equal(t, int64(0), v)
	})
}

func TestService_Update(t *testing.T) {
	existing := owned(tenantRef, "spam", 0)

	t.Run("validates changed pattern against current type", func(t *testing.T) {
		f := newFixture()
		existing := existing
		existing.PatternType = blocklist.PatternRegex
		f.repo.getByIDFn = func(context.Context, string, uuid.UUID) (*blocklist.Entry, error) {
			return &existing, nil
		}

		bad := "(?"
		_, err := f.svc.Update(context.Background(), testTenant, existing.ID, blocklist.UpdateFields{Pattern: &bad})
		assert.ErrorIs(t, err, blocklist.ErrInvalidPattern)
	})

	t.Run("records before and after", func(t *testing.T) {
		f := newFixture()
		f.repo.getByIDFn = func(context.Context, string, uuid.UUID) (*blocklist.Entry, error) {
			return &existing, nil
		}
		f.repo.updateFn = func(_ context.Context, _ string, _ uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error) {
			updated := fields.Apply(existing)
			return &updated, nil
		}

		sev := blocklist.SeverityHigh
		updated, err := f.svc.Update(context.Background(), testTenant, existing.ID, blocklist.UpdateFields{Severity: &sev})
		require.NoError(t, err)
		assert.Equal(t, blocklist.SeverityHigh, updated.Severity)

		require.Len(t, f.changes.changes, 1)
		c := f.changes.changes[0]
		assert.Equal(t, auditlog.ActionUpdate, c.Action)
		assert.Contains(t, string(c.Before), `"severity":"medium"`)
		assert.Contains(t, string(c.After), `"severity":"high"`)
	})
}

func TestService_Delete(t *testing.T) {
	f := newFixture()

	err := f.svc.Delete(context.Background(), testTenant, uuid.New())
	assert.ErrorIs(t, err, blocklist.ErrEntryNotFound)

	existing := owned(talentRef, "spam", 0)
	f.repo.getByIDFn = func(context.Context, string, uuid.UUID) (*blocklist.Entry, error) {
		return &existing, nil
	}
	require.NoError(t, f.svc.Delete(context.Background(), testTenant, existing.ID))
	require.Len(t, f.changes.changes, 1)
	assert.Equal(t, auditlog.ActionDelete, f.changes.changes[0].Action)
	assert.Nil(t, f.changes.changes[0].After)
}

func TestService_SetOverride(t *testing.T) {
	inherited := owned(tenantRef, "spam", 0)
	forced := owned(tenantRef, "forced", 0)
	forced.ForceUse = true
	local := owned(tenantRef, "local", 0)
	local.Inherit = false
	talentOwned := owned(talentRef, "mine", 0)

	entries := map[uuid.UUID]*blocklist.Entry{
		inherited.ID:   &inherited,
		forced.ID:      &forced,
		local.ID:       &local,
		talentOwned.ID: &talentOwned,
	}

	tests := []struct {
		name    string
		entryID uuid.UUID
		ref     scope.Ref
		wantErr error
	}{
		{name: "talent disables tenant entry", entryID: inherited.ID, ref: talentRef},
		{name: "subsidiary disables tenant entry", entryID: inherited.ID, ref: subsidiaryRef},
		{name: "force-used entry", entryID: forced.ID, ref: talentRef, wantErr: blocklist.ErrForceUse},
		{name: "owner scope", entryID: inherited.ID, ref: tenantRef, wantErr: blocklist.ErrNotInherited},
		{name: "non-inherited entry", entryID: local.ID, ref: talentRef, wantErr: blocklist.ErrNotInherited},
		{name: "broader than owner", entryID: talentOwned.ID, ref: subsidiaryRef, wantErr: blocklist.ErrNotInherited},
		{name: "unknown entry", entryID: uuid.New(), ref: talentRef, wantErr: blocklist.ErrEntryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.getByIDFn = func(_ context.Context, _ string, id uuid.UUID) (*blocklist.Entry, error) {
				if e, ok := entries[id]; ok {
					return e, nil
				}
				return nil, blocklist.ErrEntryNotFound
			}
			var stored *blocklist.Override
			f.repo.setOverrideFn = func(_ context.Context, _ string, o *blocklist.Override) error {
				stored = o
				return nil
			}

			o, err := f.svc.SetOverride(context.Background(), testTenant, tt.entryID, tt.ref, true)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ref, o.Scope)
			assert.True(t, o.Disabled)
			assert.Same(t, stored, o)
			require.Len(t, f.changes.changes, 1)
			assert.Equal(t, "blocklist_entry_override", f.changes.changes[0].ObjectType)
		})
	}
}

func TestService_EffectiveEntries(t *testing.T) {
	f := newFixture()
	e := owned(tenantRef, "spam", 0)
	var chains []scope.Chain
	f.repo.listForChainFn = func(_ context.Context, _ string, chain scope.Chain) ([]blocklist.Entry, error) {
		chains = append(chains, chain)
		return []blocklist.Entry{e}, nil
	}
	f.repo.listOverridesFn = func(context.Context, string, scope.Chain) ([]blocklist.Override, error) {
		return []blocklist.Override{{EntryID: e.ID, Scope: subsidiaryRef, Disabled: true}}, nil
	}

	got, err := f.svc.EffectiveEntries(context.Background(), testTenant, talentRef)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.EffectiveEntries(context.Background(), testTenant, tenantRef)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.Equal(t, []scope.Chain{talentChain, {tenantRef}}, chains)
}
