package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/api/validation"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// SettingsService is the part of settings.Service used by the handlers.
type SettingsService interface {
	Registry() *settings.Registry
	Effective(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) (settings.Resolved, error)
	Set(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, key string, raw json.RawMessage, locked bool) (*settings.Value, error)
	Unset(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, key string) error
}

// setSettingRequest is the request body for PUT /settings.
type setSettingRequest struct {
	ScopeType string          `json:"scopeType"`
	ScopeID   string          `json:"scopeId"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Locked    bool            `json:"locked"`
}

type effectiveSettingResponse struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description,omitempty"`
	Source      *scopeResponse  `json:"source"`
	LockedBy    *scopeResponse  `json:"lockedBy"`
}

type settingValueResponse struct {
	Scope     scopeResponse   `json:"scope"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Locked    bool            `json:"locked"`
	UpdatedBy string          `json:"updatedBy"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// SettingsHandler handles scoped settings endpoints.
type SettingsHandler struct {
	svc SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Effective handles GET /settings/effective.
func (h *SettingsHandler) Effective(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	ref, ok := queryScope(w, r)
	if !ok {
		return
	}

	resolved, err := h.svc.Effective(r.Context(), tn, ref)
	if err != nil {
		respondError(w, r, err, "resolve settings")
		return
	}

	reg := h.svc.Registry()
	items := make([]effectiveSettingResponse, 0, len(resolved))
	for _, key := range reg.Keys() {
		eff, ok := resolved[key]
		if !ok {
			continue
		}
		def, _ := reg.Get(key)
		items = append(items, effectiveSettingResponse{
			Key:         key,
			Value:       eff.Value,
			Description: def.Description,
			Source:      toScopeResponsePtr(eff.Source),
			LockedBy:    toScopeResponsePtr(eff.LockedBy),
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Set handles PUT /settings.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}

	var req setSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ref, fieldErrors := validation.ParseScope(req.ScopeType, req.ScopeID)
	fieldErrors = append(fieldErrors, validation.ValidateSetSettingRequest(validation.SetSettingRequest{
		Key:   req.Key,
		Value: req.Value,
	})...)
	if validationFailed(w, r, fieldErrors) {
		return
	}

	v, err := h.svc.Set(r.Context(), tn, ref, req.Key, req.Value, req.Locked)
	if err != nil {
		respondError(w, r, err, "set setting")
		return
	}

	resp := settingValueResponse{
		Scope:     toScopeResponse(v.Scope),
		Key:       v.Key,
		Value:     v.Raw,
		Locked:    v.Locked,
		UpdatedBy: v.UpdatedBy,
	}
	if !v.UpdatedAt.IsZero() {
		resp.UpdatedAt = v.UpdatedAt.UTC().Format(timeFormat)
	}
	response.Success(w, http.StatusOK, resp, requestID)
}

// Unset handles DELETE /settings?scopeType=&scopeId=&key=.
func (h *SettingsHandler) Unset(w http.ResponseWriter, r *http.Request) {
	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	ref, fieldErrors := validation.ParseScope(q.Get("scopeType"), q.Get("scopeId"))
	key := q.Get("key")
	if key == "" {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "key", Message: "key is required"})
	}
	if validationFailed(w, r, fieldErrors) {
		return
	}

	if err := h.svc.Unset(r.Context(), tn, ref, key); err != nil {
		respondError(w, r, err, "unset setting")
		return
	}

	response.NoContent(w)
}
