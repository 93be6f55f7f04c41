package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrClientNotFound is returned when an API client record is not found.
var ErrClientNotFound = errors.New("api client not found")

// ErrClientRevoked is returned when attempting to operate on a revoked API client.
var ErrClientRevoked = errors.New("api client is revoked")

// ClientRepository provides operations on the api_clients table.
type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	// FindByPrefix returns active clients of active tenants with the given key prefix.
	FindByPrefix(ctx context.Context, prefix string) ([]Client, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Client, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}
