// Package scope models the tenant → subsidiary → talent hierarchy that blocklist entries and
// settings are attached to, and resolves the inheritance chain for a given scope.
package scope

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Type is a level of the hierarchy.
type Type string

const (
	TypeTenant     Type = "tenant"
	TypeSubsidiary Type = "subsidiary"
	TypeTalent     Type = "talent"
)

// ErrScopeNotFound is returned when a referenced subsidiary or talent does not exist.
var ErrScopeNotFound = errors.New("scope not found")

// ErrInvalidScopeType is returned when parsing an unknown scope type.
var ErrInvalidScopeType = errors.New("invalid scope type")

// Rank orders the levels from broadest (0) to narrowest. Unknown types rank -1.
func (t Type) Rank() int {
	switch t {
	case TypeTenant:
		return 0
	case TypeSubsidiary:
		return 1
	case TypeTalent:
		return 2
	default:
		return -1
	}
}

// Valid reports whether t is a known level.
func (t Type) Valid() bool {
	return t.Rank() >= 0
}

// ParseType converts s into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScopeType, s)
	}
	return t, nil
}

// Ref identifies one node of the hierarchy. The tenant node carries the tenant id.
type Ref struct {
	Type Type
	ID   uuid.UUID
}

// String renders the ref as "type:id".
func (r Ref) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

// Chain lists the refs that apply to a scope, broadest first. The last element is the
// scope the chain was resolved for.
type Chain []Ref

// Target returns the narrowest ref.
func (c Chain) Target() Ref {
	return c[len(c)-1]
}

// Index returns the position of ref in the chain, or -1.
func (c Chain) Index(ref Ref) int {
	for i, r := range c {
		if r == ref {
			return i
		}
	}
	return -1
}

// Key is a stable string form usable as a cache key.
func (c Chain) Key() string {
	parts := make([]string, len(c))
	for i, r := range c {
		parts[i] = r.String()
	}
	return strings.Join(parts, ">")
}

// Directory answers hierarchy questions inside one tenant schema.
type Directory interface {
	SubsidiaryExists(ctx context.Context, schema string, id uuid.UUID) (bool, error)
	// TalentSubsidiary returns the subsidiary a talent belongs to, or nil when it has none.
	// It returns ErrScopeNotFound when the talent does not exist.
	TalentSubsidiary(ctx context.Context, schema string, talentID uuid.UUID) (*uuid.UUID, error)
}

// Resolve builds the inheritance chain for ref inside the tenant identified by tenantID.
// A tenant ref with a nil ID refers to the current tenant.
func Resolve(ctx context.Context, dir Directory, schema string, tenantID uuid.UUID, ref Ref) (Chain, error) {
	root := Ref{Type: TypeTenant, ID: tenantID}

	switch ref.Type {
	case TypeTenant:
		if ref.ID != uuid.Nil && ref.ID != tenantID {
			return nil, ErrScopeNotFound
		}
		return Chain{root}, nil

	case TypeSubsidiary:
		ok, err := dir.SubsidiaryExists(ctx, schema, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("looking up subsidiary: %w", err)
		}
		if !ok {
			return nil, ErrScopeNotFound
		}
		return Chain{root, ref}, nil

	case TypeTalent:
		subID, err := dir.TalentSubsidiary(ctx, schema, ref.ID)
		if err != nil {
			if errors.Is(err, ErrScopeNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("looking up talent: %w", err)
		}
		if subID == nil {
			return Chain{root, ref}, nil
		}
		return Chain{root, {Type: TypeSubsidiary, ID: *subID}, ref}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidScopeType, ref.Type)
}
