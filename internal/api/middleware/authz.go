package middleware

import (
	"net/http"

	"github.com/creatorhub/creatorhub/internal/api/response"
)

// RequireRole returns middleware that rejects operators holding none of roles.
// API clients carry no roles and are always rejected.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication is required", requestID)
				return
			}

			if identity.IsAPIClient || !identity.HasRole(roles...) {
				response.Err(w, http.StatusForbidden, response.CodeForbidden, "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPIClient returns middleware that only admits machine clients.
func RequireAPIClient() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication is required", requestID)
				return
			}

			if !identity.IsAPIClient {
				response.Err(w, http.StatusForbidden, response.CodeForbidden, "This endpoint is reserved for API clients", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
