package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTenantNotFound is returned when a tenant record is not found.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrDuplicateTenantCode is returned when a tenant with the same code already exists.
var ErrDuplicateTenantCode = errors.New("tenant code already exists")

// Repository provides operations on the public tenants table.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByCode(ctx context.Context, code string) (*Tenant, error)
	ListActive(ctx context.Context) ([]Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
