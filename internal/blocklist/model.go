// Package blocklist holds moderation entries, resolves which of them apply to a scope
// and matches text against them.
package blocklist

import (
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// PatternType is how an entry's pattern is interpreted.
type PatternType string

const (
	// PatternKeyword is a literal phrase.
	PatternKeyword PatternType = "keyword"
	// PatternWildcard is a phrase where * matches a run of non-space characters and ? one character.
	PatternWildcard PatternType = "wildcard"
	// PatternRegex is an RE2 regular expression.
	PatternRegex PatternType = "regex"
)

// Severity grades how serious a match is.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Action is what a match does to the checked text.
type Action string

const (
	ActionNone   Action = "none"
	ActionFlag   Action = "flag"
	ActionMask   Action = "mask"
	ActionReject Action = "reject"
)

// SeverityRank returns the rank of s (higher = more severe). Unknown values rank 0.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// ActionRank returns the rank of a (higher = stronger). Unknown values rank 0.
func ActionRank(a Action) int {
	switch a {
	case ActionFlag:
		return 1
	case ActionMask:
		return 2
	case ActionReject:
		return 3
	default:
		return 0
	}
}

// MaxSeverity returns the highest severity, or SeverityNone.
func MaxSeverity(severities ...Severity) Severity {
	max := SeverityNone
	for _, s := range severities {
		if SeverityRank(s) > SeverityRank(max) {
			max = s
		}
	}
	return max
}

// MaxAction returns the strongest action, or ActionNone.
func MaxAction(actions ...Action) Action {
	max := ActionNone
	for _, a := range actions {
		if ActionRank(a) > ActionRank(max) {
			max = a
		}
	}
	return max
}

// Entry represents a row in the blocklist_entries table.
type Entry struct {
	ID          uuid.UUID
	Scope       scope.Ref
	Name        string
	Pattern     string
	PatternType PatternType
	Severity    Severity
	Action      Action
	Category    string
	// Inherit makes the entry apply to narrower scopes too.
	Inherit bool
	// ForceUse prevents narrower scopes from disabling or redefining the entry.
	ForceUse    bool
	IsActive    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Override represents a row in the blocklist_entry_overrides table.
type Override struct {
	EntryID   uuid.UUID
	Scope     scope.Ref
	Disabled  bool
	UpdatedAt time.Time
}

// UpdateFields holds optional fields for a partial entry update.
// Nil fields are not updated.
type UpdateFields struct {
	Name        *string
	Pattern     *string
	PatternType *PatternType
	Severity    *Severity
	Action      *Action
	Category    *string
	Inherit     *bool
	ForceUse    *bool
	IsActive    *bool
	Description *string
}

// Apply returns a copy of e with the non-nil fields set.
func (f UpdateFields) Apply(e Entry) Entry {
	if f.Name != nil {
		e.Name = *f.Name
	}
	if f.Pattern != nil {
		e.Pattern = *f.Pattern
	}
	if f.PatternType != nil {
		e.PatternType = *f.PatternType
	}
	if f.Severity != nil {
		e.Severity = *f.Severity
	}
	if f.Action != nil {
		e.Action = *f.Action
	}
	if f.Category != nil {
		e.Category = *f.Category
	}
	if f.Inherit != nil {
		e.Inherit = *f.Inherit
	}
	if f.ForceUse != nil {
		e.ForceUse = *f.ForceUse
	}
	if f.IsActive != nil {
		e.IsActive = *f.IsActive
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	return e
}

// Match is one occurrence of an entry in checked text. Start and End are rune offsets
// into the original text, End exclusive.
type Match struct {
	EntryID     uuid.UUID
	Name        string
	Pattern     string
	PatternType PatternType
	Scope       scope.Ref
	Severity    Severity
	Action      Action
	Category    string
	Start       int
	End         int
	Text        string
}

// Result is the outcome of checking a text.
type Result struct {
	IsBlocked    bool
	Action       Action
	Severity     Severity
	Matches      []Match
	FilteredText string
}
