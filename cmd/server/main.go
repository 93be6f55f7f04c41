package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	specpkg "github.com/creatorhub/creatorhub/api"
	"github.com/creatorhub/creatorhub/internal/api"
	"github.com/creatorhub/creatorhub/internal/api/handler"
	"github.com/creatorhub/creatorhub/internal/api/middleware"
	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/auth"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/config"
	"github.com/creatorhub/creatorhub/internal/db"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/retention"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
	"github.com/creatorhub/creatorhub/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if err := provisionTenants(ctx, database); err != nil {
		return err
	}

	redisClient, err := db.NewRedis(ctx, cfg.RedisURL, cfg.RedisConnAttempts)
	if err != nil {
		slog.Warn("redis unavailable; caches and rate limits stay local to this instance", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	pool := database.Pool()

	logStore := auditlog.NewStore(pool)
	dispatcher := auditlog.NewDispatcher(logStore, cfg.LogQueueSize, m)

	var versions blocklist.VersionStore = blocklist.NewMemoryVersionStore()
	if redisClient != nil {
		versions = blocklist.NewRedisVersionStore(redisClient)
	}

	settingsSvc := settings.NewService(
		settings.NewRepository(pool),
		scope.NewDirectory(pool),
		settings.DefaultRegistry(),
		versions,
		dispatcher,
	)

	blocklistSvc := blocklist.NewService(
		blocklist.NewRepository(pool),
		settingsSvc,
		blocklist.DefaultRegistry(),
		blocklist.NewRulesetCache(versions, cfg.RulesetCacheTTL, m),
		versions,
		dispatcher,
		m,
	)

	tenantRepo := tenant.NewRepository(pool)
	notifier := webhook.NewNotifier(&http.Client{Timeout: cfg.WebhookTimeout}, cfg.WebhookAttempts, cfg.WebhookRetryDelay, dispatcher, m)

	var limiterClient redis.UniversalClient
	if redisClient != nil {
		limiterClient = redisClient
	}
	checkLimiter, err := middleware.NewLimiter(cfg.CheckRateLimit, limiterClient)
	if err != nil {
		return err
	}

	deps := api.RouterDeps{
		DB:           database,
		Version:      cfg.Version,
		OpenAPISpec:  specpkg.OpenAPISpec,
		Metrics:      m,
		Tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer),
		Keys:         auth.NewService(auth.NewRepository(pool), cfg.BcryptCost),
		Tenants:      tenant.NewCache(tenantRepo, cfg.TenantCacheTTL),
		Blocklist:    blocklistSvc,
		Checker:      blocklistSvc,
		Settings:     settingsSvc,
		Logs:         logStore,
		Notifier:     notifier,
		Events:       dispatcher,
		CheckLimiter: checkLimiter,
	}
	if redisClient != nil {
		deps.Redis = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	scheduler := retention.New(tenantRepo, logStore, dispatcher, m, cfg.RetentionSchedule, cfg.RetentionDays)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting retention scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting creatorhub server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		<-scheduler.Stop().Done()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		slog.Warn("retention run still in progress at shutdown")
	}

	// Webhook deliveries write integration logs, so they drain before the log queue.
	if err := notifier.Wait(shutdownCtx); err != nil {
		slog.Warn("webhook deliveries still pending at shutdown", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("log records dropped at shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))
}

// provisionTenants brings the schema of every active tenant up to date.
func provisionTenants(ctx context.Context, database *db.DB) error {
	tenants, err := tenant.NewRepository(database.Pool()).ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing tenants: %w", err)
	}
	for _, t := range tenants {
		if err := database.ProvisionTenant(ctx, t.SchemaName); err != nil {
			return fmt.Errorf("migrating tenant schema %s: %w", t.SchemaName, err)
		}
	}
	slog.Info("tenant schemas up to date", "tenants", len(tenants))
	return nil
}

