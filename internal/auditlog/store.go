package auditlog

import (
	"context"
	"time"
)

// Store persists and queries audit records inside a tenant schema.
type Store interface {
	InsertChange(ctx context.Context, schema string, c *ChangeLog) error
	InsertTechEvent(ctx context.Context, schema string, e *TechEvent) error
	InsertIntegration(ctx context.Context, schema string, l *IntegrationLog) error

	ListChanges(ctx context.Context, schema string, filter Filter) (*Page[ChangeLog], error)
	ListTechEvents(ctx context.Context, schema string, filter Filter) (*Page[TechEvent], error)
	ListIntegrations(ctx context.Context, schema string, filter Filter) (*Page[IntegrationLog], error)

	// Prune deletes tech event and integration records older than before and returns the
	// number of removed rows per table. Change logs are kept.
	Prune(ctx context.Context, schema string, before time.Time) (map[string]int64, error)
}
