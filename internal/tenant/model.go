package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a row in the public tenants table. Each tenant's business data lives
// in its own PostgreSQL schema named by SchemaName.
type Tenant struct {
	ID         uuid.UUID
	Code       string
	Name       string
	SchemaName string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
