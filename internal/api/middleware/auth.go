package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creatorhub/creatorhub/internal/api/response"
	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/auth"
)

const identityKey contextKey = "identity"

// TokenVerifier verifies operator bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (*auth.Identity, error)
}

// KeyAuthenticator resolves machine client API keys.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error)
}

// Auth is middleware that authenticates the caller with either an
// "Authorization: Bearer <jwt>" header or an X-API-Key header.
// Missing or invalid credentials return 401. The identity is also recorded
// as the operator of any change made during the request.
func Auth(tokens TokenVerifier, keys KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			var (
				identity *auth.Identity
				err      error
			)

			if header := r.Header.Get("Authorization"); header != "" {
				raw, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || strings.TrimSpace(raw) == "" {
					response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Authorization header must use the Bearer scheme", requestID)
					return
				}
				identity, err = tokens.Verify(strings.TrimSpace(raw))
				if err != nil {
					response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired token", requestID)
					return
				}
			} else if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
				identity, err = keys.Authenticate(r.Context(), rawKey)
				if err != nil {
					if errors.Is(err, auth.ErrInvalidKey) {
						response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or revoked API key", requestID)
						return
					}
					slog.Error("failed to authenticate api key", "error", err)
					response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Authentication failed", requestID)
					return
				}
			} else {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Bearer token or API key is required", requestID)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = auditlog.WithOperator(ctx, auditlog.Operator{
				ID:        identity.Subject,
				Name:      identity.Name,
				RequestID: requestID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
