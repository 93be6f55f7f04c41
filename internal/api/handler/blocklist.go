package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/api/validation"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// BlocklistService is the part of blocklist.Service used by the handlers.
type BlocklistService interface {
	Test(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (blocklist.Result, error)
	List(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error)
	EffectiveEntries(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]blocklist.Entry, error)
	Get(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) (*blocklist.Entry, error)
	Create(ctx context.Context, tn *tenant.Tenant, e *blocklist.Entry) error
	Update(ctx context.Context, tn *tenant.Tenant, id uuid.UUID, fields blocklist.UpdateFields) (*blocklist.Entry, error)
	Delete(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) error
	SetOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref, disabled bool) (*blocklist.Override, error)
	ClearOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref) error
}

// checkRequest is the request body for POST /blocklist-entry/test and /moderation/check.
type checkRequest struct {
	ScopeType string `json:"scopeType"`
	ScopeID   string `json:"scopeId"`
	Text      string `json:"text"`
}

// createEntryRequest is the request body for POST /blocklist-entry.
type createEntryRequest struct {
	ScopeType   string `json:"scopeType"`
	ScopeID     string `json:"scopeId"`
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	PatternType string `json:"patternType"`
	Severity    string `json:"severity"`
	Action      string `json:"action"`
	Category    string `json:"category"`
	Inherit     *bool  `json:"inherit"`
	ForceUse    bool   `json:"forceUse"`
	IsActive    *bool  `json:"isActive"`
	Description string `json:"description"`
}

// updateEntryRequest is the request body for PATCH /blocklist-entry/{id}.
type updateEntryRequest struct {
	ScopeType   *string `json:"scopeType"`
	ScopeID     *string `json:"scopeId"`
	Name        *string `json:"name"`
	Pattern     *string `json:"pattern"`
	PatternType *string `json:"patternType"`
	Severity    *string `json:"severity"`
	Action      *string `json:"action"`
	Category    *string `json:"category"`
	Inherit     *bool   `json:"inherit"`
	ForceUse    *bool   `json:"forceUse"`
	IsActive    *bool   `json:"isActive"`
	Description *string `json:"description"`
}

// overrideRequest is the request body for PUT /blocklist-entry/{id}/override.
type overrideRequest struct {
	ScopeType string `json:"scopeType"`
	ScopeID   string `json:"scopeId"`
	Disabled  *bool  `json:"disabled"`
}

type entryResponse struct {
	ID          string        `json:"id"`
	Scope       scopeResponse `json:"scope"`
	Name        string        `json:"name"`
	Pattern     string        `json:"pattern"`
	PatternType string        `json:"patternType"`
	Severity    string        `json:"severity"`
	Action      string        `json:"action"`
	Category    string        `json:"category"`
	Inherit     bool          `json:"inherit"`
	ForceUse    bool          `json:"forceUse"`
	IsActive    bool          `json:"isActive"`
	Description string        `json:"description"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

type matchResponse struct {
	EntryID     string        `json:"entryId"`
	Name        string        `json:"name"`
	Pattern     string        `json:"pattern"`
	PatternType string        `json:"patternType"`
	Scope       scopeResponse `json:"scope"`
	Severity    string        `json:"severity"`
	Action      string        `json:"action"`
	Category    string        `json:"category"`
	Start       int           `json:"start"`
	End         int           `json:"end"`
	Text        string        `json:"text"`
}

type checkResponse struct {
	IsBlocked    bool            `json:"isBlocked"`
	Action       string          `json:"action"`
	Severity     string          `json:"severity"`
	Matches      []matchResponse `json:"matches"`
	FilteredText string          `json:"filteredText"`
}

type overrideResponse struct {
	EntryID   string        `json:"entryId"`
	Scope     scopeResponse `json:"scope"`
	Disabled  bool          `json:"disabled"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

func toEntryResponse(e *blocklist.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID.String(),
		Scope:       toScopeResponse(e.Scope),
		Name:        e.Name,
		Pattern:     e.Pattern,
		PatternType: string(e.PatternType),
		Severity:    string(e.Severity),
		Action:      string(e.Action),
		Category:    e.Category,
		Inherit:     e.Inherit,
		ForceUse:    e.ForceUse,
		IsActive:    e.IsActive,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   e.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toEntryResponses(entries []blocklist.Entry) []entryResponse {
	items := make([]entryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}
	return items
}

func toCheckResponse(res blocklist.Result) checkResponse {
	matches := make([]matchResponse, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, matchResponse{
			EntryID:     m.EntryID.String(),
			Name:        m.Name,
			Pattern:     m.Pattern,
			PatternType: string(m.PatternType),
			Scope:       toScopeResponse(m.Scope),
			Severity:    string(m.Severity),
			Action:      string(m.Action),
			Category:    m.Category,
			Start:       m.Start,
			End:         m.End,
			Text:        m.Text,
		})
	}
	return checkResponse{
		IsBlocked:    res.IsBlocked,
		Action:       string(res.Action),
		Severity:     string(res.Severity),
		Matches:      matches,
		FilteredText: res.FilteredText,
	}
}

func toOverrideResponse(o *blocklist.Override) overrideResponse {
	resp := overrideResponse{
		EntryID:  o.EntryID.String(),
		Scope:    toScopeResponse(o.Scope),
		Disabled: o.Disabled,
	}
	if !o.UpdatedAt.IsZero() {
		resp.UpdatedAt = o.UpdatedAt.UTC().Format(timeFormat)
	}
	return resp
}

// BlocklistHandler handles blocklist entry endpoints.
type BlocklistHandler struct {
	svc     BlocklistService
	metrics *metrics.Metrics
}

// NewBlocklistHandler creates a new BlocklistHandler.
func NewBlocklistHandler(svc BlocklistService, m *metrics.Metrics) *BlocklistHandler {
	return &BlocklistHandler{svc: svc, metrics: m}
}

// Test handles POST /blocklist-entry/test.
func (h *BlocklistHandler) Test(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.svc.Test(r.Context(), tn, ref, req.Text)
	if err != nil {
		respondError(w, r, err, "test text")
		return
	}
	h.metrics.ObserveCheck("test", res.IsBlocked, time.Since(start))

	response.Success(w, http.StatusOK, toCheckResponse(res), requestID)
}

// List handles GET /blocklist-entry: the entries owned by a scope.
func (h *BlocklistHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.List, "list blocklist entries")
}

// Effective handles GET /blocklist-entry/effective: the entries that apply to a scope.
func (h *BlocklistHandler) Effective(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.EffectiveEntries, "resolve effective blocklist entries")
}

func (h *BlocklistHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	load func(context.Context, *tenant.Tenant, scope.Ref) ([]blocklist.Entry, error),
	action string,
) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	ref, ok := queryScope(w, r)
	if !ok {
		return
	}

	entries, err := load(r.Context(), tn, ref)
	if err != nil {
		respondError(w, r, err, action)
		return
	}

	items := toEntryResponses(entries)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Create handles POST /blocklist-entry.
func (h *BlocklistHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}

	var req createEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	ref, scopeErrors := validation.ParseScope(req.ScopeType, req.ScopeID)
	fieldErrors := append(scopeErrors, validation.ValidateCreateEntryRequest(validation.CreateEntryRequest{
		Name:        req.Name,
		Pattern:     req.Pattern,
		PatternType: req.PatternType,
		Severity:    req.Severity,
		Action:      req.Action,
		Category:    req.Category,
		Description: req.Description,
	})...)
	if validationFailed(w, r, fieldErrors) {
		return
	}

	e := &blocklist.Entry{
		Scope:       ref,
		Name:        req.Name,
		Pattern:     req.Pattern,
		PatternType: blocklist.PatternType(req.PatternType),
		Severity:    blocklist.Severity(req.Severity),
		Action:      blocklist.Action(req.Action),
		Category:    req.Category,
		Inherit:     req.Inherit == nil || *req.Inherit,
		ForceUse:    req.ForceUse,
		IsActive:    req.IsActive == nil || *req.IsActive,
		Description: req.Description,
	}

	if err := h.svc.Create(r.Context(), tn, e); err != nil {
		respondError(w, r, err, "create blocklist entry")
		return
	}

	response.Success(w, http.StatusCreated, toEntryResponse(e), requestID)
}

// GetByID handles GET /blocklist-entry/{id}.
func (h *BlocklistHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := h.svc.Get(r.Context(), tn, id)
	if err != nil {
		respondError(w, r, err, "get blocklist entry")
		return
	}

	response.Success(w, http.StatusOK, toEntryResponse(e), requestID)
}

// Update handles PATCH /blocklist-entry/{id}.
func (h *BlocklistHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ScopeType != nil || req.ScopeID != nil {
		response.Err(w, http.StatusBadRequest, response.CodeImmutableField, "scope cannot be changed", requestID)
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}

	fieldErrors := validation.ValidateUpdateEntryRequest(validation.UpdateEntryRequest{
		Name:        req.Name,
		Pattern:     req.Pattern,
		PatternType: req.PatternType,
		Severity:    req.Severity,
		Action:      req.Action,
		Category:    req.Category,
		Description: req.Description,
	})
	if validationFailed(w, r, fieldErrors) {
		return
	}

	fields := blocklist.UpdateFields{
		Name:        req.Name,
		Pattern:     req.Pattern,
		Category:    req.Category,
		Inherit:     req.Inherit,
		ForceUse:    req.ForceUse,
		IsActive:    req.IsActive,
		Description: req.Description,
	}
	if req.PatternType != nil {
		pt := blocklist.PatternType(*req.PatternType)
		fields.PatternType = &pt
	}
	if req.Severity != nil {
		sev := blocklist.Severity(*req.Severity)
		fields.Severity = &sev
	}
	if req.Action != nil {
		act := blocklist.Action(*req.Action)
		fields.Action = &act
	}

	e, err := h.svc.Update(r.Context(), tn, id, fields)
	if err != nil {
		respondError(w, r, err, "update blocklist entry")
		return
	}

	response.Success(w, http.StatusOK, toEntryResponse(e), requestID)
}

// Delete handles DELETE /blocklist-entry/{id}.
func (h *BlocklistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tn, id); err != nil {
		respondError(w, r, err, "delete blocklist entry")
		return
	}

	response.NoContent(w)
}

// SetOverride handles PUT /blocklist-entry/{id}/override.
func (h *BlocklistHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ref, fieldErrors := validation.ParseScope(req.ScopeType, req.ScopeID)
	if req.Disabled == nil {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "disabled", Message: "disabled is required"})
	}
	if validationFailed(w, r, fieldErrors) {
		return
	}

	o, err := h.svc.SetOverride(r.Context(), tn, id, ref, *req.Disabled)
	if err != nil {
		respondError(w, r, err, "set blocklist override")
		return
	}

	response.Success(w, http.StatusOK, toOverrideResponse(o), requestID)
}

// ClearOverride handles DELETE /blocklist-entry/{id}/override?scopeType=&scopeId=.
func (h *BlocklistHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	tn, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ref, ok := queryScope(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClearOverride(r.Context(), tn, id, ref); err != nil {
		respondError(w, r, err, "clear blocklist override")
		return
	}

	response.NoContent(w)
}
