package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

var testTenant = &tenant.Tenant{
	ID:         uuid.MustParse("11111111-1111-1111-1111-111111111111"),
	Code:       "acme",
	Name:       "Acme Talent",
	SchemaName: "tenant_acme",
	IsActive:   true,
}

var talentID = uuid.MustParse("33333333-3333-3333-3333-333333333333")

// makeChiRequest builds a request carrying the test tenant and optional chi URL params.
func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx := middleware.WithTenant(req.Context(), testTenant)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx), httptest.NewRecorder()
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func sampleEntry(id uuid.UUID) *blocklist.Entry {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &blocklist.Entry{
		ID:          id,
		Scope:       scope.Ref{Type: scope.TypeTenant, ID: testTenant.ID},
		Name:        "insult",
		Pattern:     "idiot",
		PatternType: blocklist.PatternKeyword,
		Severity:    blocklist.SeverityMedium,
		Action:      blocklist.ActionMask,
		Category:    "abuse",
		Inherit:     true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type mockBlocklistService struct {
	testFn          func(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (blocklist.Result, error)
	listFn          func(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error)
	effectiveFn     func(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error)
	getFn           func(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) (*blocklist.Entry, error)
	createFn        func(ctx context.Context, tn *tenant.Tenant, e *blocklist.Entry) error
	updateFn        func(ctx context.Context, tn *tenant.Tenant, id uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error)
	deleteFn        func(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) error
	setOverrideFn   func(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref, disabled bool) (*blocklist.Override, error)
	clearOverrideFn func(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref) error
}

func (m *mockBlocklistService) Test(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (blocklist.Result, error) {
	return m.testFn(ctx, tn, ref, text)
}

func (m *mockBlocklistService) List(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error) {
	return m.listFn(ctx, tn, ref)
}

func (m *mockBlocklistService) EffectiveEntries(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error) {
	return m.effectiveFn(ctx, tn, ref)
}

func (m *mockBlocklistService) Get(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) (*blocklist.Entry, error) {
	return m.getFn(ctx, tn, id)
}

func (m *mockBlocklistService) Create(ctx context.Context, tn *tenant.Tenant, e *blocklist.Entry) error {
	return m.createFn(ctx, tn, e)
}

func (m *mockBlocklistService) Update(ctx context.Context, tn *tenant.Tenant, id uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error) {
	return m.updateFn(ctx, tn, id, fields)
}

func (m *mockBlocklistService) Delete(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) error {
	return m.deleteFn(ctx, tn, id)
}

func (m *mockBlocklistService) SetOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref, disabled bool) (*blocklist.Override, error) {
	return m.setOverrideFn(ctx, tn, entryID, ref, disabled)
}

func (m *mockBlocklistService) ClearOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref) error {
	return m.clearOverrideFn(ctx, tn, entryID, ref)
}
