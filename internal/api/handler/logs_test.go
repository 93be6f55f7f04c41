package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/api/handler"
	"github.com/creatorhub/creatorhub/internal/auditlog"
)

type mockLogReader struct {
	listChangesFn      func(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.ChangeLog], error)
	listTechEventsFn   func(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.TechEvent], error)
	listIntegrationsFn func(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.IntegrationLog], error)
}

func (m *mockLogReader) ListChanges(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.ChangeLog], error) {
	return m.listChangesFn(ctx, schema, f)
}

func (m *mockLogReader) ListTechEvents(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.TechEvent], error) {
	return m.listTechEventsFn(ctx, schema, f)
}

func (m *mockLogReader) ListIntegrations(ctx context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.IntegrationLog], error) {
	return m.listIntegrationsFn(ctx, schema, f)
}

var logTime = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func TestLogsChanges(t *testing.T) {
	t.Parallel()

	var got auditlog.Filter
	logs := &mockLogReader{
		listChangesFn: func(_ context.Context, schema string, f auditlog.Filter) (*auditlog.Page[auditlog.ChangeLog], error) {
			assert.Equal(t, "tenant_acme", schema)
			got = f
			return &auditlog.Page[auditlog.ChangeLog]{
				Items: []auditlog.ChangeLog{{
					ID:           uuid.New(),
					OccurredAt:   logTime,
					OperatorID:   "op-1",
					OperatorName: "Alice",
					ObjectType:   "blocklist_entry",
					ObjectID:     "e-1",
					Action:       "create",
					After:        []byte(`{"name":"insult"}`),
				}},
				Total: 41,
				Page:  3,
				Limit: 20,
			}, nil
		},
	}
	h := handler.NewLogHandler(logs)

	req, w := makeChiRequest(http.MethodGet, "/logs/change?objectType=blocklist_entry&page=3", nil, nil)
	h.Changes(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got.Kind)
	assert.Equal(t, "blocklist_entry", *got.Kind)
	assert.Equal(t, 3, got.Page)

	env := parseEnvelope(t, w)
	item := env["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2026-05-10T09:00:00Z", item["occurredAt"])
	assert.Nil(t, item["before"])
	assert.Equal(t, "insult", item["after"].(map[string]interface{})["name"])

	meta := env["meta"].(map[string]interface{})
	assert.Equal(t, float64(41), meta["total"])
	assert.Equal(t, float64(3), meta["page"])
}

func TestLogsTechEvents_LevelFilter(t *testing.T) {
	t.Parallel()

	logs := &mockLogReader{
		listTechEventsFn: func(_ context.Context, _ string, f auditlog.Filter) (*auditlog.Page[auditlog.TechEvent], error) {
			require.NotNil(t, f.Level)
			assert.Equal(t, auditlog.LevelWarn, *f.Level)
			return &auditlog.Page[auditlog.TechEvent]{
				Items: []auditlog.TechEvent{{ID: uuid.New(), OccurredAt: logTime, Level: auditlog.LevelWarn, EventType: "moderation.blocked"}},
				Total: 1, Page: 1, Limit: 20,
			}, nil
		},
	}
	h := handler.NewLogHandler(logs)

	req, w := makeChiRequest(http.MethodGet, "/logs/tech-event?level=warn", nil, nil)
	h.TechEvents(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := parseEnvelope(t, w)["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "moderation.blocked", item["eventType"])
	assert.Nil(t, item["payload"])

	req, w = makeChiRequest(http.MethodGet, "/logs/tech-event?level=debug", nil, nil)
	h.TechEvents(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogsIntegrations(t *testing.T) {
	t.Parallel()

	logs := &mockLogReader{
		listIntegrationsFn: func(context.Context, string, auditlog.Filter) (*auditlog.Page[auditlog.IntegrationLog], error) {
			return nil, errors.New("db down")
		},
	}
	h := handler.NewLogHandler(logs)

	req, w := makeChiRequest(http.MethodGet, "/logs/integration", nil, nil)
	h.Integrations(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))

	req, w = makeChiRequest(http.MethodGet, "/logs/integration?from=2026-05-10T00:00:00Z&to=2026-05-01T00:00:00Z", nil, nil)
	h.Integrations(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
