package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// ErrLockedByAncestor is returned when a broader level has locked the key.
var ErrLockedByAncestor = errors.New("setting is locked by an ancestor scope")

// ChangeNotifier is told when a tenant's moderation configuration changed.
type ChangeNotifier interface {
	Bump(ctx context.Context, tenantSchema string) error
}

// ChangeRecorder receives change log records.
type ChangeRecorder interface {
	RecordChange(schema string, c auditlog.ChangeLog)
}

// Service reads and writes scoped settings.
type Service struct {
	repo     Repository
	dir      scope.Directory
	reg      *Registry
	notifier ChangeNotifier
	changes  ChangeRecorder
}

// NewService creates a new settings Service.
func NewService(repo Repository, dir scope.Directory, reg *Registry, notifier ChangeNotifier, changes ChangeRecorder) *Service {
	return &Service{
		repo:     repo,
		dir:      dir,
		reg:      reg,
		notifier: notifier,
		changes:  changes,
	}
}

// Registry returns the definitions the service validates against.
func (s *Service) Registry() *Registry {
	return s.reg
}

// Chain resolves the inheritance chain of ref inside tn.
func (s *Service) Chain(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) (scope.Chain, error) {
	return scope.Resolve(ctx, s.dir, tn.SchemaName, tn.ID, ref)
}

// ResolveChain returns the effective settings for an already resolved chain.
func (s *Service) ResolveChain(ctx context.Context, schema string, chain scope.Chain) (Resolved, error) {
	values, err := s.repo.ListForChain(ctx, schema, chain)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return Resolve(s.reg, chain, values), nil
}

// Effective returns the effective settings of ref.
func (s *Service) Effective(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) (Resolved, error) {
	chain, err := s.Chain(ctx, tn, ref)
	if err != nil {
		return nil, err
	}
	return s.ResolveChain(ctx, tn.SchemaName, chain)
}

type snapshot struct {
	Value  json.RawMessage `json:"value"`
	Locked bool            `json:"locked"`
}

// Set stores raw as the value of key on ref.
func (s *Service) Set(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, key string, raw json.RawMessage, locked bool) (*Value, error) {
	normalized, err := s.reg.Validate(key, raw)
	if err != nil {
		return nil, err
	}

	chain, err := s.Chain(ctx, tn, ref)
	if err != nil {
		return nil, err
	}
	target := chain.Target()

	values, err := s.repo.ListForChain(ctx, tn.SchemaName, chain)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	var before *snapshot
	for _, v := range values {
		if v.Key != key {
			continue
		}
		if v.Scope == target {
			before = &snapshot{Value: v.Raw, Locked: v.Locked}
			continue
		}
		if v.Locked {
			return nil, fmt.Errorf("%w: %s", ErrLockedByAncestor, v.Scope)
		}
	}

	value := &Value{
		Scope:     target,
		Key:       key,
		Raw:       normalized,
		Locked:    locked,
		UpdatedBy: auditlog.OperatorFrom(ctx).Name,
	}
	if err := s.repo.Upsert(ctx, tn.SchemaName, value); err != nil {
		return nil, err
	}

	action := auditlog.ActionCreate
	if before != nil {
		action = auditlog.ActionUpdate
	}
	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "setting", objectID(target, key), action,
		before, snapshot{Value: normalized, Locked: locked}))

	return value, nil
}

// Unset removes the value of key stored on ref, restoring inheritance.
func (s *Service) Unset(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, key string) error {
	chain, err := s.Chain(ctx, tn, ref)
	if err != nil {
		return err
	}
	target := chain.Target()

	existing, err := s.repo.Get(ctx, tn.SchemaName, target, key)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tn.SchemaName, target, key); err != nil {
		return err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "setting", objectID(target, key), auditlog.ActionDelete,
		snapshot{Value: existing.Raw, Locked: existing.Locked}, nil))
	return nil
}

func (s *Service) afterWrite(ctx context.Context, tn *tenant.Tenant, change auditlog.ChangeLog) {
	// The write already succeeded; a failed bump leaves cached rulesets stale until their TTL.
	if err := s.notifier.Bump(ctx, tn.SchemaName); err != nil {
		slog.Error("failed to bump ruleset version", "error", err, "tenant", tn.Code)
	}
	s.changes.RecordChange(tn.SchemaName, change)
}

func objectID(ref scope.Ref, key string) string {
	return ref.String() + "/" + key
}
