package auditlog_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/metrics"
)

// mockStore records inserts. When block is non-nil every insert signals entered and
// then waits on block.
type mockStore struct {
	mu           sync.Mutex
	changes      []auditlog.ChangeLog
	events       []auditlog.TechEvent
	integrations []auditlog.IntegrationLog
	schemas      []string
	entered      chan struct{}
	block        chan struct{}
	insertErr    error
}

func (m *mockStore) wait() {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
}

func (m *mockStore) InsertChange(_ context.Context, schema string, c *auditlog.ChangeLog) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, *c)
	m.schemas = append(m.schemas, schema)
	return m.insertErr
}

func (m *mockStore) InsertTechEvent(_ context.Context, schema string, e *auditlog.TechEvent) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	m.schemas = append(m.schemas, schema)
	return m.insertErr
}

func (m *mockStore) InsertIntegration(_ context.Context, schema string, l *auditlog.IntegrationLog) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations = append(m.integrations, *l)
	m.schemas = append(m.schemas, schema)
	return m.insertErr
}

func (m *mockStore) ListChanges(context.Context, string, auditlog.Filter) (*auditlog.Page[auditlog.ChangeLog], error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) ListTechEvents(context.Context, string, auditlog.Filter) (*auditlog.Page[auditlog.TechEvent], error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) ListIntegrations(context.Context, string, auditlog.Filter) (*auditlog.Page[auditlog.IntegrationLog], error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) Prune(context.Context, string, time.Time) (map[string]int64, error) {
	return nil, errors.New("not implemented")
}

func TestDispatcher_WritesAllKinds(t *testing.T) {
	store := &mockStore{}
	d := auditlog.NewDispatcher(store, 10, nil)

	d.RecordChange("tenant_acme", auditlog.ChangeLog{ObjectType: "blocklist_entry", Action: auditlog.ActionCreate})
	d.RecordTechEvent("tenant_acme", auditlog.TechEvent{Level: auditlog.LevelWarn, EventType: "moderation.blocked"})
	d.RecordIntegration("tenant_acme", auditlog.IntegrationLog{Integration: "webhook"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Len(t, store.changes, 1)
	assert.Len(t, store.events, 1)
	assert.Len(t, store.integrations, 1)
	assert.Equal(t, []string{"tenant_acme", "tenant_acme", "tenant_acme"}, store.schemas)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	store := &mockStore{entered: make(chan struct{}, 4), block: make(chan struct{})}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := auditlog.NewDispatcher(store, 1, m)

	// The worker takes the first record and blocks on it; the second fills the queue.
	d.RecordChange("s", auditlog.ChangeLog{ObjectID: "1"})
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first record")
	}
	d.RecordChange("s", auditlog.ChangeLog{ObjectID: "2"})
	d.RecordChange("s", auditlog.ChangeLog{ObjectID: "3"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped.WithLabelValues("change")))

	close(store.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Len(t, store.changes, 2)
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	store := &mockStore{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := auditlog.NewDispatcher(store, 4, m)

	require.NoError(t, d.Close(context.Background()))
	d.RecordTechEvent("s", auditlog.TechEvent{EventType: "late"})

	assert.Empty(t, store.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped.WithLabelValues("tech_event")))
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := auditlog.NewDispatcher(&mockStore{}, 4, nil)

	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	store := &mockStore{block: make(chan struct{})}
	defer close(store.block)
	d := auditlog.NewDispatcher(store, 4, nil)
	d.RecordChange("s", auditlog.ChangeLog{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestDispatcher_WriteErrorsAreCounted(t *testing.T) {
	store := &mockStore{insertErr: errors.New("relation does not exist")}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := auditlog.NewDispatcher(store, 4, m)

	d.RecordIntegration("s", auditlog.IntegrationLog{})
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteErrs.WithLabelValues("integration")))
}
