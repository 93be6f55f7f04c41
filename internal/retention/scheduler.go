// Package retention prunes old tech-event and integration logs across tenants on a schedule.
package retention

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// TenantLister lists the tenants to prune.
type TenantLister interface {
	ListActive(ctx context.Context) ([]tenant.Tenant, error)
}

// Pruner deletes log rows older than before from one tenant schema.
type Pruner interface {
	Prune(ctx context.Context, schema string, before time.Time) (map[string]int64, error)
}

// TechEventRecorder receives the outcome of each tenant's run.
type TechEventRecorder interface {
	RecordTechEvent(schema string, e auditlog.TechEvent)
}

// Summary describes one run over all tenants.
type Summary struct {
	Tenants int
	Failed  int
	Pruned  int64
}

// Scheduler runs the retention job on a cron schedule.
type Scheduler struct {
	tenants  TenantLister
	store    Pruner
	events   TechEventRecorder
	metrics  *metrics.Metrics
	schedule string
	days     int
	now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// New creates a Scheduler that keeps days of logs.
func New(tenants TenantLister, store Pruner, events TechEventRecorder, m *metrics.Metrics, schedule string, days int) *Scheduler {
	return &Scheduler{
		tenants:  tenants,
		store:    store,
		events:   events,
		metrics:  m,
		schedule: schedule,
		days:     days,
		now:      time.Now,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the job and starts the cron goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("retention scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(context.Background()) }); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	slog.Info("retention scheduler started", "schedule", s.schedule, "retentionDays", s.days)
	return nil
}

// Stop stops scheduling new runs. The returned context is done once a running job finishes.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	slog.Info("stopping retention scheduler")
	return s.cron.Stop()
}

// RunNow prunes every active tenant. A tenant that fails is logged and skipped.
func (s *Scheduler) RunNow(ctx context.Context) Summary {
	var sum Summary

	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		slog.Error("retention: failed to list tenants", "error", err)
		s.metrics.RetentionRun(false, nil)
		return sum
	}

	before := s.now().UTC().AddDate(0, 0, -s.days)
	for _, t := range tenants {
		if ctx.Err() != nil {
			break
		}
		sum.Tenants++

		pruned, err := s.store.Prune(ctx, t.SchemaName, before)
		if err != nil {
			sum.Failed++
			slog.Error("retention: failed to prune tenant", "tenant", t.Code, "error", err)
			s.metrics.RetentionRun(false, nil)
			s.record(t.SchemaName, auditlog.LevelError, "retention failed: "+err.Error(), nil)
			continue
		}

		var total int64
		for _, n := range pruned {
			total += n
		}
		sum.Pruned += total
		s.metrics.RetentionRun(true, pruned)
		s.record(t.SchemaName, auditlog.LevelInfo, "retention completed", pruned)
		slog.Info("retention: pruned tenant", "tenant", t.Code, "rows", total)
	}

	return sum
}

func (s *Scheduler) record(schema, level, message string, pruned map[string]int64) {
	payload, _ := json.Marshal(map[string]any{
		"retentionDays": s.days,
		"pruned":        pruned,
	})
	s.events.RecordTechEvent(schema, auditlog.TechEvent{
		Level:     level,
		EventType: "retention.run",
		Scope:     "tenant",
		Message:   message,
		Payload:   payload,
	})
}
