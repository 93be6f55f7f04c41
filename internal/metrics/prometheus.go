package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Moderation metrics
	ChecksTotal   *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec
	MatchesTotal  *prometheus.CounterVec

	// Ruleset cache metrics
	RulesetCacheHits   prometheus.Counter
	RulesetCacheMisses prometheus.Counter
	RulesetCompiles    *prometheus.HistogramVec

	// Audit metrics
	AuditQueueDepth prometheus.Gauge
	AuditDropped    *prometheus.CounterVec
	AuditWriteErrs  *prometheus.CounterVec

	// Integration metrics
	WebhookDeliveries *prometheus.CounterVec

	// Batch metrics
	RetentionPruned *prometheus.CounterVec
	RetentionRuns   *prometheus.CounterVec

	registry prometheus.Gatherer
}

// NewMetrics creates the metrics and registers them on reg. When reg is nil a private
// registry is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	f := promauto.With(reg)

	return &Metrics{
		ChecksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_moderation_checks_total",
				Help: "Total number of texts evaluated against the blocklist",
			},
			[]string{"endpoint", "outcome"},
		),

		CheckDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creatorhub_moderation_check_duration_seconds",
				Help:    "Duration of blocklist evaluation including ruleset lookup",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		MatchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_blocklist_matches_total",
				Help: "Total number of blocklist matches by action",
			},
			[]string{"action"},
		),

		RulesetCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "creatorhub_ruleset_cache_hits_total",
			Help: "Total number of compiled ruleset cache hits",
		}),

		RulesetCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "creatorhub_ruleset_cache_misses_total",
			Help: "Total number of compiled ruleset cache misses",
		}),

		RulesetCompiles: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creatorhub_ruleset_compile_duration_seconds",
				Help:    "Duration of ruleset compilation",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"result"},
		),

		AuditQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "creatorhub_audit_queue_depth",
			Help: "Number of audit records waiting to be written",
		}),

		AuditDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_audit_dropped_total",
				Help: "Total number of audit records dropped because the queue was full",
			},
			[]string{"kind"},
		),

		AuditWriteErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_audit_write_errors_total",
				Help: "Total number of audit records that failed to persist",
			},
			[]string{"kind"},
		),

		WebhookDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_webhook_deliveries_total",
				Help: "Total number of webhook deliveries by result",
			},
			[]string{"result"},
		),

		RetentionPruned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_retention_pruned_rows_total",
				Help: "Total number of log rows removed by the retention job",
			},
			[]string{"table"},
		),

		RetentionRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_retention_tenant_runs_total",
				Help: "Total number of per-tenant retention runs by result",
			},
			[]string{"result"},
		),

		registry: gatherer,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCheck records a finished moderation check.
func (m *Metrics) ObserveCheck(endpoint string, blocked bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if blocked {
		outcome = "blocked"
	}
	m.ChecksTotal.WithLabelValues(endpoint, outcome).Inc()
	m.CheckDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveMatch records one match by action.
func (m *Metrics) ObserveMatch(action string) {
	if m == nil {
		return
	}
	m.MatchesTotal.WithLabelValues(action).Inc()
}

// RulesetCacheHit records a cache lookup outcome.
func (m *Metrics) RulesetCacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.RulesetCacheHits.Inc()
		return
	}
	m.RulesetCacheMisses.Inc()
}

// ObserveCompile records a ruleset compilation.
func (m *Metrics) ObserveCompile(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RulesetCompiles.WithLabelValues(result).Observe(d.Seconds())
}

// SetAuditQueueDepth reports the current audit queue length.
func (m *Metrics) SetAuditQueueDepth(n int) {
	if m == nil {
		return
	}
	m.AuditQueueDepth.Set(float64(n))
}

// AuditDrop counts a dropped audit record.
func (m *Metrics) AuditDrop(kind string) {
	if m == nil {
		return
	}
	m.AuditDropped.WithLabelValues(kind).Inc()
}

// AuditWriteError counts an audit record that could not be stored.
func (m *Metrics) AuditWriteError(kind string) {
	if m == nil {
		return
	}
	m.AuditWriteErrs.WithLabelValues(kind).Inc()
}

// WebhookDelivery counts a webhook delivery outcome.
func (m *Metrics) WebhookDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.WebhookDeliveries.WithLabelValues(result).Inc()
}

// RetentionRun records the outcome of pruning one tenant.
func (m *Metrics) RetentionRun(ok bool, pruned map[string]int64) {
	if m == nil {
		return
	}
	if !ok {
		m.RetentionRuns.WithLabelValues("error").Inc()
		return
	}
	m.RetentionRuns.WithLabelValues("ok").Inc()
	for table, n := range pruned {
		m.RetentionPruned.WithLabelValues(table).Add(float64(n))
	}
}
