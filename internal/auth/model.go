// Package auth authenticates API callers: operators with JWT bearer tokens and machine
// clients with per-tenant API keys.
package auth

import (
	"time"

	"github.com/google/uuid"
)

// Roles carried by operator tokens.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleViewer    = "viewer"
)

// Client represents a row in the api_clients table.
type Client struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	TenantCode   string // joined from tenants
	Name         string
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	RevokedAt    *time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	Subject     string
	Name        string
	TenantCode  string
	Roles       []string
	IsAPIClient bool
}

// HasRole reports whether the identity holds any of roles.
func (i *Identity) HasRole(roles ...string) bool {
	for _, have := range i.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
