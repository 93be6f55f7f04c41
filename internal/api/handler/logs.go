package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/api/validation"
	"github.com/creatorhub/creatorhub/internal/auditlog"
)

// LogReader queries the audit trails of a tenant schema.
type LogReader interface {
	ListChanges(ctx context.Context, schema string, filter auditlog.Filter) (*auditlog.Page[auditlog.ChangeLog], error)
	ListTechEvents(ctx context.Context, schema string, filter auditlog.Filter) (*auditlog.Page[auditlog.TechEvent], error)
	ListIntegrations(ctx context.Context, schema string, filter auditlog.Filter) (*auditlog.Page[auditlog.IntegrationLog], error)
}

type changeLogResponse struct {
	ID           string          `json:"id"`
	OccurredAt   string          `json:"occurredAt"`
	OperatorID   string          `json:"operatorId"`
	OperatorName string          `json:"operatorName"`
	ObjectType   string          `json:"objectType"`
	ObjectID     string          `json:"objectId"`
	Action       string          `json:"action"`
	Before       json.RawMessage `json:"before"`
	After        json.RawMessage `json:"after"`
	RequestID    string          `json:"requestId,omitempty"`
}

type techEventResponse struct {
	ID         string          `json:"id"`
	OccurredAt string          `json:"occurredAt"`
	Level      string          `json:"level"`
	EventType  string          `json:"eventType"`
	Scope      string          `json:"scope"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload"`
	RequestID  string          `json:"requestId,omitempty"`
}

type integrationLogResponse struct {
	ID           string `json:"id"`
	OccurredAt   string `json:"occurredAt"`
	Integration  string `json:"integration"`
	Direction    string `json:"direction"`
	Method       string `json:"method"`
	Endpoint     string `json:"endpoint"`
	StatusCode   int    `json:"statusCode"`
	DurationMS   int64  `json:"durationMs"`
	RequestBody  string `json:"requestBody,omitempty"`
	ResponseBody string `json:"responseBody,omitempty"`
	Error        string `json:"error,omitempty"`
}

// rawOrNull keeps absent JSON columns as null instead of dropping the field.
func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// LogHandler handles the audit log query endpoints.
type LogHandler struct {
	logs LogReader
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(logs LogReader) *LogHandler {
	return &LogHandler{logs: logs}
}

func (h *LogHandler) filter(w http.ResponseWriter, r *http.Request, kindParam string) (string, auditlog.Filter, bool) {
	tn, ok := currentTenant(w, r)
	if !ok {
		return "", auditlog.Filter{}, false
	}
	f, fieldErrors := validation.ParseLogQuery(r.URL.Query(), kindParam)
	if validationFailed(w, r, fieldErrors) {
		return "", auditlog.Filter{}, false
	}
	return tn.SchemaName, f, true
}

// Changes handles GET /logs/change.
func (h *LogHandler) Changes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	schema, f, ok := h.filter(w, r, "objectType")
	if !ok {
		return
	}

	page, err := h.logs.ListChanges(r.Context(), schema, f)
	if err != nil {
		respondError(w, r, err, "list change logs")
		return
	}

	items := make([]changeLogResponse, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, changeLogResponse{
			ID:           c.ID.String(),
			OccurredAt:   c.OccurredAt.UTC().Format(timeFormat),
			OperatorID:   c.OperatorID,
			OperatorName: c.OperatorName,
			ObjectType:   c.ObjectType,
			ObjectID:     c.ObjectID,
			Action:       c.Action,
			Before:       rawOrNull(c.Before),
			After:        rawOrNull(c.After),
			RequestID:    c.RequestID,
		})
	}

	response.SuccessList(w, http.StatusOK, items, page.Total, page.Page, page.Limit, requestID)
}

// TechEvents handles GET /logs/tech-event.
func (h *LogHandler) TechEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	schema, f, ok := h.filter(w, r, "eventType")
	if !ok {
		return
	}

	page, err := h.logs.ListTechEvents(r.Context(), schema, f)
	if err != nil {
		respondError(w, r, err, "list tech events")
		return
	}

	items := make([]techEventResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, techEventResponse{
			ID:         e.ID.String(),
			OccurredAt: e.OccurredAt.UTC().Format(timeFormat),
			Level:      e.Level,
			EventType:  e.EventType,
			Scope:      e.Scope,
			Message:    e.Message,
			Payload:    rawOrNull(e.Payload),
			RequestID:  e.RequestID,
		})
	}

	response.SuccessList(w, http.StatusOK, items, page.Total, page.Page, page.Limit, requestID)
}

// Integrations handles GET /logs/integration.
func (h *LogHandler) Integrations(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	schema, f, ok := h.filter(w, r, "integration")
	if !ok {
		return
	}

	page, err := h.logs.ListIntegrations(r.Context(), schema, f)
	if err != nil {
		respondError(w, r, err, "list integration logs")
		return
	}

	items := make([]integrationLogResponse, 0, len(page.Items))
	for _, l := range page.Items {
		items = append(items, integrationLogResponse{
			ID:           l.ID.String(),
			OccurredAt:   l.OccurredAt.UTC().Format(timeFormat),
			Integration:  l.Integration,
			Direction:    l.Direction,
			Method:       l.Method,
			Endpoint:     l.Endpoint,
			StatusCode:   l.StatusCode,
			DurationMS:   l.DurationMS,
			RequestBody:  l.RequestBody,
			ResponseBody: l.ResponseBody,
			Error:        l.Error,
		})
	}

	response.SuccessList(w, http.StatusOK, items, page.Total, page.Page, page.Limit, requestID)
}
