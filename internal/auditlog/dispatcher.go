package auditlog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/creatorhub/creatorhub/internal/metrics"
)

// DefaultQueueSize is used when NewDispatcher is given a non-positive size.
const DefaultQueueSize = 1024

const (
	kindChange      = "change"
	kindTechEvent   = "tech_event"
	kindIntegration = "integration"
)

type record struct {
	schema      string
	change      *ChangeLog
	event       *TechEvent
	integration *IntegrationLog
}

func (r record) kind() string {
	switch {
	case r.change != nil:
		return kindChange
	case r.event != nil:
		return kindTechEvent
	default:
		return kindIntegration
	}
}

// Dispatcher writes audit records asynchronously. Records are never allowed to fail or
// block an API call: when the queue is full the record is dropped and counted.
type Dispatcher struct {
	store   Store
	metrics *metrics.Metrics
	queue   chan record
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher with a bounded queue of the given size.
func NewDispatcher(store Store, size int, m *metrics.Metrics) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		store:   store,
		metrics: m,
		queue:   make(chan record, size),
		done:    make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for rec := range d.queue {
		d.metrics.SetAuditQueueDepth(len(d.queue))
		if err := d.write(rec); err != nil {
			d.metrics.AuditWriteError(rec.kind())
			slog.Error("failed to write audit record", "error", err, "kind", rec.kind(), "schema", rec.schema)
		}
	}
}

func (d *Dispatcher) write(rec record) error {
	// Writes outlive the request that produced them.
	ctx := context.Background()

	switch {
	case rec.change != nil:
		return d.store.InsertChange(ctx, rec.schema, rec.change)
	case rec.event != nil:
		return d.store.InsertTechEvent(ctx, rec.schema, rec.event)
	default:
		return d.store.InsertIntegration(ctx, rec.schema, rec.integration)
	}
}

// RecordChange enqueues a change log record.
func (d *Dispatcher) RecordChange(schema string, c ChangeLog) {
	d.enqueue(record{schema: schema, change: &c})
}

// RecordTechEvent enqueues a tech event record.
func (d *Dispatcher) RecordTechEvent(schema string, e TechEvent) {
	d.enqueue(record{schema: schema, event: &e})
}

// RecordIntegration enqueues an integration log record.
func (d *Dispatcher) RecordIntegration(schema string, l IntegrationLog) {
	d.enqueue(record{schema: schema, integration: &l})
}

func (d *Dispatcher) enqueue(rec record) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.AuditDrop(rec.kind())
		slog.Warn("audit dispatcher closed, dropping record", "kind", rec.kind(), "schema", rec.schema)
		return
	}

	select {
	case d.queue <- rec:
	default:
		d.metrics.AuditDrop(rec.kind())
		slog.Warn("audit queue full, dropping record", "kind", rec.kind(), "schema", rec.schema)
	}
}

// Close stops accepting records and waits until the queue is drained or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
