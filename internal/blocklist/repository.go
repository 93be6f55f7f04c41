package blocklist

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// ErrEntryNotFound is returned when a blocklist entry is not found.
var ErrEntryNotFound = errors.New("blocklist entry not found")

// ErrDuplicatePattern is returned when the scope already has an entry with the same pattern.
var ErrDuplicatePattern = errors.New("blocklist entry with this pattern already exists in scope")

// ErrOverrideNotFound is returned when no override exists for the entry and scope.
var ErrOverrideNotFound = errors.New("blocklist override not found")

// Repository provides operations on the blocklist tables of a tenant schema.
type Repository interface {
	Create(ctx context.Context, schema string, e *Entry) error
	GetByID(ctx context.Context, schema string, id uuid.UUID) (*Entry, error)
	ListByScope(ctx context.Context, schema string, ref scope.Ref) ([]Entry, error)
	// ListForChain returns every entry owned by a level of chain, active or not.
	ListForChain(ctx context.Context, schema string, chain scope.Chain) ([]Entry, error)
	Update(ctx context.Context, schema string, id uuid.UUID, fields UpdateFields) (*Entry, error)
	Delete(ctx context.Context, schema string, id uuid.UUID) error

	// ListOverrides returns the overrides attached to a level of chain.
	ListOverrides(ctx context.Context, schema string, chain scope.Chain) ([]Override, error)
	SetOverride(ctx context.Context, schema string, o *Override) error
	DeleteOverride(ctx context.Context, schema string, entryID uuid.UUID, ref scope.Ref) error
}
