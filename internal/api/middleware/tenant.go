package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

const tenantKey contextKey = "tenant"

// Tenant is middleware that loads the tenant named by the authenticated identity.
// Unknown and inactive tenants are rejected with 403.
func Tenant(lookup tenant.Lookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication is required", requestID)
				return
			}

			tn, err := lookup.GetByCode(r.Context(), identity.TenantCode)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					response.Err(w, http.StatusForbidden, response.CodeTenantNotFound, "Tenant does not exist", requestID)
					return
				}
				slog.Error("failed to load tenant", "error", err, "tenant", identity.TenantCode)
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to load tenant", requestID)
				return
			}

			if !tn.IsActive {
				response.Err(w, http.StatusForbidden, response.CodeTenantInactive, "Tenant is inactive", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tn)))
		})
	}
}

// WithTenant returns a context carrying tn.
func WithTenant(ctx context.Context, tn *tenant.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, tn)
}

// GetTenant retrieves the resolved tenant from the request context.
func GetTenant(ctx context.Context) *tenant.Tenant {
	if tn, ok := ctx.Value(tenantKey).(*tenant.Tenant); ok {
		return tn
	}
	return nil
}
