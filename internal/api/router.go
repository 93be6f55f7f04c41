// Package api wires the HTTP router.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/creatorhub/creatorhub/internal/api/handler"
	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/auth"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DB          handler.Pinger
	Redis       handler.Pinger // optional
	Version     string
	OpenAPISpec []byte
	Metrics     *metrics.Metrics

	Tokens  middleware.TokenVerifier
	Keys    middleware.KeyAuthenticator
	Tenants tenant.Lookup

	Blocklist handler.BlocklistService
	Checker   handler.Checker
	Settings  handler.SettingsService
	Logs      handler.LogReader
	Notifier  handler.WebhookNotifier
	Events    handler.TechEventRecorder

	// CheckLimiter limits /moderation/check per client; nil disables limiting.
	CheckLimiter *limiter.Limiter
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler, err := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		if err != nil {
			return nil, fmt.Errorf("loading OpenAPI spec: %w", err)
		}
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	blocklistHandler := handler.NewBlocklistHandler(deps.Blocklist, deps.Metrics)
	moderationHandler := handler.NewModerationHandler(deps.Checker, deps.Notifier, deps.Events, deps.Metrics)
	settingsHandler := handler.NewSettingsHandler(deps.Settings)
	logHandler := handler.NewLogHandler(deps.Logs)

	writer := middleware.RequireRole(auth.RoleAdmin, auth.RoleModerator)
	operator := middleware.RequireRole(auth.RoleAdmin, auth.RoleModerator, auth.RoleViewer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens, deps.Keys))
		r.Use(middleware.Tenant(deps.Tenants))

		r.Route("/blocklist-entry", func(r chi.Router) {
			r.Post("/test", blocklistHandler.Test)
			r.With(operator).Get("/", blocklistHandler.List)
			r.With(operator).Get("/effective", blocklistHandler.Effective)
			r.With(writer).Post("/", blocklistHandler.Create)
			r.With(operator).Get("/{id}", blocklistHandler.GetByID)
			r.With(writer).Patch("/{id}", blocklistHandler.Update)
			r.With(writer).Delete("/{id}", blocklistHandler.Delete)
			r.With(writer).Put("/{id}/override", blocklistHandler.SetOverride)
			r.With(writer).Delete("/{id}/override", blocklistHandler.ClearOverride)
		})

		r.Route("/settings", func(r chi.Router) {
			r.With(operator).Get("/effective", settingsHandler.Effective)
			r.With(writer).Put("/", settingsHandler.Set)
			r.With(writer).Delete("/", settingsHandler.Unset)
		})

		check := r.With(middleware.RequireAPIClient())
		if deps.CheckLimiter != nil {
			check = check.With(middleware.RateLimit(deps.CheckLimiter))
		}
		check.Post("/moderation/check", moderationHandler.Check)

		r.Route("/logs", func(r chi.Router) {
			r.Use(operator)
			r.Get("/change", logHandler.Changes)
			r.Get("/tech-event", logHandler.TechEvents)
			r.Get("/integration", logHandler.Integrations)
		})
	})

	return r, nil
}
