// Package handler implements the HTTP handlers of the /api/v1 surface.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/api/validation"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

const (
	maxBodyBytes = 1 << 20
	timeFormat   = "2006-01-02T15:04:05Z"
)

// decodeJSON reads a JSON body capped at 1 MiB into v. It writes the error response and
// returns false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

// currentTenant returns the tenant resolved by the Tenant middleware.
func currentTenant(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, bool) {
	tn := middleware.GetTenant(r.Context())
	if tn == nil {
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication is required", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return tn, true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidID, "id must be a valid UUID", middleware.GetRequestID(r.Context()))
		return uuid.Nil, false
	}
	return id, true
}

// queryScope reads scopeType and scopeId from the query string.
func queryScope(w http.ResponseWriter, r *http.Request) (scope.Ref, bool) {
	q := r.URL.Query()
	return bodyScope(w, r, q.Get("scopeType"), q.Get("scopeId"))
}

func bodyScope(w http.ResponseWriter, r *http.Request, scopeType, scopeID string) (scope.Ref, bool) {
	ref, fieldErrors := validation.ParseScope(scopeType, scopeID)
	if len(fieldErrors) > 0 {
		response.Validation(w, fieldErrors, middleware.GetRequestID(r.Context()))
		return scope.Ref{}, false
	}
	return ref, true
}

func validationFailed(w http.ResponseWriter, r *http.Request, fieldErrors []validation.FieldError) bool {
	if len(fieldErrors) == 0 {
		return false
	}
	response.Validation(w, fieldErrors, middleware.GetRequestID(r.Context()))
	return true
}

// respondError maps domain errors to API errors. Anything unexpected is logged and
// reported as INTERNAL_ERROR with "Failed to <action>".
func respondError(w http.ResponseWriter, r *http.Request, err error, action string) {
	requestID := middleware.GetRequestID(r.Context())

	fieldErr := func(field string) {
		response.Validation(w, []validation.FieldError{{Field: field, Message: err.Error()}}, requestID)
	}

	switch {
	case errors.Is(err, scope.ErrScopeNotFound):
		response.Err(w, http.StatusNotFound, response.CodeScopeNotFound, "Scope not found", requestID)
	case errors.Is(err, blocklist.ErrEntryNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "Blocklist entry not found", requestID)
	case errors.Is(err, blocklist.ErrOverrideNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "Override not found", requestID)
	case errors.Is(err, settings.ErrValueNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "Setting is not set on this scope", requestID)
	case errors.Is(err, blocklist.ErrDuplicatePattern):
		response.Err(w, http.StatusConflict, response.CodeDuplicatePattern, "An entry with this pattern already exists on this scope", requestID)
	case errors.Is(err, blocklist.ErrInvalidPattern), errors.Is(err, blocklist.ErrUnknownPatternType):
		fieldErr("pattern")
	case errors.Is(err, blocklist.ErrTextTooLong):
		fieldErr("text")
	case errors.Is(err, blocklist.ErrForceUse):
		response.Err(w, http.StatusConflict, response.CodeForceUse, "Entry is force-used and cannot be overridden", requestID)
	case errors.Is(err, blocklist.ErrNotInherited):
		response.Err(w, http.StatusConflict, response.CodeNotInherited, "Entry is not inherited by this scope", requestID)
	case errors.Is(err, settings.ErrUnknownKey):
		fieldErr("key")
	case errors.Is(err, settings.ErrInvalidValue):
		fieldErr("value")
	case errors.Is(err, settings.ErrLockedByAncestor):
		response.Err(w, http.StatusConflict, response.CodeLockedByAncestor, err.Error(), requestID)
	default:
		slog.Error("failed to "+action, "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to "+action, requestID)
	}
}

type scopeResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func toScopeResponse(ref scope.Ref) scopeResponse {
	return scopeResponse{Type: string(ref.Type), ID: ref.ID.String()}
}

func toScopeResponsePtr(ref *scope.Ref) *scopeResponse {
	if ref == nil {
		return nil
	}
	s := toScopeResponse(*ref)
	return &s
}
