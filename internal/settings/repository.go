package settings

import (
	"context"
	"errors"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// ErrValueNotFound is returned when a scope has no value for a key.
var ErrValueNotFound = errors.New("setting value not found")

// Repository provides operations on the scoped_settings table of a tenant schema.
type Repository interface {
	// ListForChain returns every stored value attached to a level of chain.
	ListForChain(ctx context.Context, schema string, chain scope.Chain) ([]Value, error)
	Get(ctx context.Context, schema string, ref scope.Ref, key string) (*Value, error)
	Upsert(ctx context.Context, schema string, v *Value) error
	Delete(ctx context.Context, schema string, ref scope.Ref, key string) error
}
