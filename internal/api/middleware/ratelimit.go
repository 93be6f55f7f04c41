package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/creatorhub/creatorhub/internal/api/response"
)

// NewLimiter creates a limiter for rate, a formatted rate such as "120-M".
// Counters live in Redis when client is set so that every replica shares them.
func NewLimiter(rate string, client redis.UniversalClient) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "creatorhub:ratelimit",
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("creating redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return limiter.New(store, r), nil
}

// RateLimit returns middleware that limits requests per authenticated caller.
// When the store fails the request is let through.
func RateLimit(lim *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			key := r.RemoteAddr
			if identity := GetIdentity(r.Context()); identity != nil {
				key = identity.TenantCode + ":" + identity.Subject
			}

			lctx, err := lim.Get(r.Context(), key)
			if err != nil {
				slog.Error("failed to read rate limit", "error", err, "requestId", requestID)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				retryAfter := max(lctx.Reset-time.Now().Unix(), 1)
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				response.Err(w, http.StatusTooManyRequests, response.CodeRateLimited, "Too many requests", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
