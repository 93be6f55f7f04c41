package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/api/response"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	redis   Pinger // nil when Redis is not configured
	version string
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db Pinger, redis Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
	}
}

type dependencyStatus struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

type healthData struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
}

// ServeHTTP handles the health check request. A failing dependency reports "degraded".
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: h.check(ctx, "database", h.db),
		Redis:    h.check(ctx, "redis", h.redis),
	}
	if (data.Database.Configured && !data.Database.Connected) || (data.Redis.Configured && !data.Redis.Connected) {
		data.Status = "degraded"
	}

	response.Success(w, http.StatusOK, data, requestID)
}

func (h *HealthHandler) check(ctx context.Context, name string, p Pinger) dependencyStatus {
	if p == nil {
		return dependencyStatus{}
	}
	if err := p.Ping(ctx); err != nil {
		slog.Warn("health check failed", "dependency", name, "error", err)
		return dependencyStatus{Configured: true}
	}
	return dependencyStatus{Configured: true, Connected: true}
}
