package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/api/validation"
	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
	"github.com/creatorhub/creatorhub/internal/webhook"
)

// Checker evaluates text and returns the ruleset it used.
type Checker interface {
	Check(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (*blocklist.Ruleset, blocklist.Result, error)
}

// WebhookNotifier delivers moderation notifications in the background.
type WebhookNotifier interface {
	Notify(ctx context.Context, schema, url string, p webhook.Payload)
}

// TechEventRecorder receives tech event records.
type TechEventRecorder interface {
	RecordTechEvent(schema string, e auditlog.TechEvent)
}

// ModerationHandler handles POST /moderation/check for machine clients.
type ModerationHandler struct {
	checker  Checker
	notifier WebhookNotifier
	events   TechEventRecorder
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewModerationHandler creates a new ModerationHandler.
func NewModerationHandler(checker Checker, notifier WebhookNotifier, events TechEventRecorder, m *metrics.Metrics) *ModerationHandler {
	return &ModerationHandler{
		checker:  checker,
		notifier: notifier,
		events:   events,
		metrics:  m,
		now:      time.Now,
	}
}

type blockedEventPayload struct {
	Scope    string   `json:"scope"`
	Action   string   `json:"action"`
	Severity string   `json:"severity"`
	EntryIDs []string `json:"entryIds"`
}

// Check handles POST /moderation/check. Blocked results are recorded as tech events and
// posted to the scope's webhook when one is configured.
func (h *ModerationHandler) Check(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}

	var req checkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ref, ok := bodyScope(w, r, req.ScopeType, req.ScopeID)
	if !ok {
		return
	}
	if validationFailed(w, r, validation.ValidateText(req.Text)) {
		return
	}

	start := time.Now()
	rs, res, err := h.checker.Check(r.Context(), tn, ref, req.Text)
	if err != nil {
		respondError(w, r, err, "check text")
		return
	}
	h.metrics.ObserveCheck("check", res.IsBlocked, time.Since(start))

	if res.IsBlocked {
		h.recordBlocked(tn, rs.Chain.Target(), res, requestID)

		if url := rs.Settings.String(settings.KeyBlocklistWebhookURL); url != "" {
			h.notifier.Notify(r.Context(), tn.SchemaName, url, webhook.NewPayload(tn.Code, rs.Chain.Target(), res, h.now()))
		}
	}

	response.Success(w, http.StatusOK, toCheckResponse(res), requestID)
}

func (h *ModerationHandler) recordBlocked(tn *tenant.Tenant, ref scope.Ref, res blocklist.Result, requestID string) {
	ids := make([]string, 0, len(res.Matches))
	seen := make(map[string]bool, len(res.Matches))
	for _, m := range res.Matches {
		id := m.EntryID.String()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	payload, _ := json.Marshal(blockedEventPayload{
		Scope:    ref.String(),
		Action:   string(res.Action),
		Severity: string(res.Severity),
		EntryIDs: ids,
	})

	h.events.RecordTechEvent(tn.SchemaName, auditlog.TechEvent{
		Level:     auditlog.LevelWarn,
		EventType: "moderation.blocked",
		Scope:     ref.String(),
		Message:   "moderation check blocked text",
		Payload:   payload,
		RequestID: requestID,
	})
}
