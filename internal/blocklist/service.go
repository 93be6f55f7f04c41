package blocklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/scope"
	"github.com/creatorhub/creatorhub/internal/settings"
	"github.com/creatorhub/creatorhub/internal/tenant"
)

// MaxTextLength is the longest text accepted by a check, in runes.
const MaxTextLength = 10000

var (
	// ErrTextTooLong is returned when checked text exceeds MaxTextLength.
	ErrTextTooLong = fmt.Errorf("text exceeds %d characters", MaxTextLength)
	// ErrForceUse is returned when an override targets a ForceUse entry.
	ErrForceUse = errors.New("entry is force-used and cannot be overridden")
	// ErrNotInherited is returned when an override targets a scope that does not inherit the entry.
	ErrNotInherited = errors.New("entry is not inherited by this scope")
)

// SettingsResolver resolves scope chains and their settings.
type SettingsResolver interface {
	Chain(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) (scope.Chain, error)
	ResolveChain(ctx context.Context, schema string, chain scope.Chain) (settings.Resolved, error)
}

// ChangeRecorder receives change log records.
type ChangeRecorder interface {
	RecordChange(schema string, c auditlog.ChangeLog)
}

// Service manages blocklist entries and checks text against them.
type Service struct {
	repo     Repository
	settings SettingsResolver
	reg      *Registry
	cache    *RulesetCache
	versions VersionStore
	changes  ChangeRecorder
	metrics  *metrics.Metrics
}

// NewService creates a new blocklist Service.
func NewService(
	repo Repository,
	resolver SettingsResolver,
	reg *Registry,
	cache *RulesetCache,
	versions VersionStore,
	changes ChangeRecorder,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		settings: resolver,
		reg:      reg,
		cache:    cache,
		versions: versions,
		changes:  changes,
		metrics:  m,
	}
}

// Registry returns the pattern compilers the service validates against.
func (s *Service) Registry() *Registry {
	return s.reg
}

// Check evaluates text against the effective entries of ref and returns the ruleset used.
func (s *Service) Check(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (*Ruleset, Result, error) {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, Result{}, ErrTextTooLong
	}

	chain, err := s.settings.Chain(ctx, tn, ref)
	if err != nil {
		return nil, Result{}, err
	}

	rs, err := s.cache.Get(ctx, tn.SchemaName, chain, func(ctx context.Context) (*Ruleset, error) {
		return s.buildRuleset(ctx, tn.SchemaName, chain)
	})
	if err != nil {
		return nil, Result{}, err
	}

	res := rs.Check(text)
	for _, m := range res.Matches {
		s.metrics.ObserveMatch(string(m.Action))
	}
	return rs, res, nil
}

// Test evaluates text against the effective entries of ref.
func (s *Service) Test(ctx context.Context, tn *tenant.Tenant, ref scope.Ref, text string) (Result, error) {
	_, res, err := s.Check(ctx, tn, ref, text)
	return res, err
}

func (s *Service) buildRuleset(ctx context.Context, schema string, chain scope.Chain) (*Ruleset, error) {
	resolved, err := s.settings.ResolveChain(ctx, schema, chain)
	if err != nil {
		return nil, err
	}
	entries, err := s.effective(ctx, schema, chain)
	if err != nil {
		return nil, err
	}

	policy := PolicyFrom(resolved)
	start := time.Now()
	matcher, err := Compile(s.reg, entries, CompileOptions{WholeWord: policy.WholeWord})
	s.metrics.ObserveCompile(err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("compiling ruleset for %s: %w", chain.Target(), err)
	}

	return &Ruleset{
		Chain:    chain,
		Policy:   policy,
		Settings: resolved,
		Entries:  entries,
		Matcher:  matcher,
	}, nil
}

func (s *Service) effective(ctx context.Context, schema string, chain scope.Chain) ([]Entry, error) {
	entries, err := s.repo.ListForChain(ctx, schema, chain)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.ListOverrides(ctx, schema, chain)
	if err != nil {
		return nil, err
	}
	return Effective(chain, entries, overrides), nil
}

// EffectiveEntries returns the entries that apply to ref.
func (s *Service) EffectiveEntries(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]Entry, error) {
	chain, err := s.settings.Chain(ctx, tn, ref)
	if err != nil {
		return nil, err
	}
	return s.effective(ctx, tn.SchemaName, chain)
}

// List returns the entries owned by ref.
func (s *Service) List(ctx context.Context, tn *tenant.Tenant, ref scope.Ref) ([]Entry, error) {
	chain, err := s.settings.Chain(ctx, tn, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByScope(ctx, tn.SchemaName, chain.Target())
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, tn.SchemaName, id)
}

// Create stores e under the scope e.Scope after validating its pattern.
func (s *Service) Create(ctx context.Context, tn *tenant.Tenant, e *Entry) error {
	if err := s.reg.Validate(e.PatternType, e.Pattern); err != nil {
		return err
	}
	chain, err := s.settings.Chain(ctx, tn, e.Scope)
	if err != nil {
		return err
	}
	e.Scope = chain.Target()

	if err := s.repo.Create(ctx, tn.SchemaName, e); err != nil {
		return err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "blocklist_entry", e.ID.String(), auditlog.ActionCreate,
		nil, snapshotOf(*e)))
	return nil
}

// Update applies fields to the entry with the given id.
func (s *Service) Update(ctx context.Context, tn *tenant.Tenant, id uuid.UUID, fields UpdateFields) (*Entry, error) {
	existing, err := s.repo.GetByID(ctx, tn.SchemaName, id)
	if err != nil {
		return nil, err
	}

	if fields.Pattern != nil || fields.PatternType != nil {
		next := fields.Apply(*existing)
		if err := s.reg.Validate(next.PatternType, next.Pattern); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, tn.SchemaName, id, fields)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "blocklist_entry", id.String(), auditlog.ActionUpdate,
		snapshotOf(*existing), snapshotOf(*updated)))
	return updated, nil
}

// Delete removes the entry with the given id.
func (s *Service) Delete(ctx context.Context, tn *tenant.Tenant, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, tn.SchemaName, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tn.SchemaName, id); err != nil {
		return err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "blocklist_entry", id.String(), auditlog.ActionDelete,
		snapshotOf(*existing), nil))
	return nil
}

// SetOverride disables or re-enables an inherited entry on ref.
func (s *Service) SetOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref, disabled bool) (*Override, error) {
	e, chain, err := s.overrideTarget(ctx, tn, entryID, ref)
	if err != nil {
		return nil, err
	}

	o := &Override{EntryID: e.ID, Scope: chain.Target(), Disabled: disabled}
	if err := s.repo.SetOverride(ctx, tn.SchemaName, o); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "blocklist_entry_override", overrideID(o.EntryID, o.Scope),
		auditlog.ActionUpdate, nil, overrideSnapshot{Disabled: disabled}))
	return o, nil
}

// ClearOverride removes the override of an entry on ref.
func (s *Service) ClearOverride(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref) error {
	e, chain, err := s.overrideTarget(ctx, tn, entryID, ref)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOverride(ctx, tn.SchemaName, e.ID, chain.Target()); err != nil {
		return err
	}

	s.afterWrite(ctx, tn, auditlog.NewChange(ctx, "blocklist_entry_override", overrideID(e.ID, chain.Target()),
		auditlog.ActionDelete, nil, nil))
	return nil
}

// overrideTarget loads the entry and checks that ref is strictly narrower than its owner
// and inherits it.
func (s *Service) overrideTarget(ctx context.Context, tn *tenant.Tenant, entryID uuid.UUID, ref scope.Ref) (*Entry, scope.Chain, error) {
	e, err := s.repo.GetByID(ctx, tn.SchemaName, entryID)
	if err != nil {
		return nil, nil, err
	}
	if e.ForceUse {
		return nil, nil, ErrForceUse
	}
	chain, err := s.settings.Chain(ctx, tn, ref)
	if err != nil {
		return nil, nil, err
	}
	owner := chain.Index(e.Scope)
	if owner < 0 || owner >= len(chain)-1 || !e.Inherit {
		return nil, nil, ErrNotInherited
	}
	return e, chain, nil
}

func (s *Service) afterWrite(ctx context.Context, tn *tenant.Tenant, change auditlog.ChangeLog) {
	if err := s.versions.Bump(ctx, tn.SchemaName); err != nil {
		slog.Error("failed to bump ruleset version", "error", err, "tenant", tn.Code)
	}
	s.changes.RecordChange(tn.SchemaName, change)
}

type entrySnapshot struct {
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	PatternType string `json:"patternType"`
	Severity    string `json:"severity"`
	Action      string `json:"action"`
	Category    string `json:"category"`
	Inherit     bool   `json:"inherit"`
	ForceUse    bool   `json:"forceUse"`
	IsActive    bool   `json:"isActive"`
	Description string `json:"description"`
}

func snapshotOf(e Entry) entrySnapshot {
	return entrySnapshot{
		Scope:       e.Scope.String(),
		Name:        e.Name,
		Pattern:     e.Pattern,
		PatternType: string(e.PatternType),
		Severity:    string(e.Severity),
		Action:      string(e.Action),
		Category:    e.Category,
		Inherit:     e.Inherit,
		ForceUse:    e.ForceUse,
		IsActive:    e.IsActive,
		Description: e.Description,
	}
}

type overrideSnapshot struct {
	Disabled bool `json:"disabled"`
}

func overrideID(entryID uuid.UUID, ref scope.Ref) string {
	return entryID.String() + "@" + ref.String()
}
