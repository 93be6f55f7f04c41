// Package validation checks API request fields and reports every problem at once.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validScopeTypes = map[string]bool{
	string(scope.TypeTenant):     true,
	string(scope.TypeSubsidiary): true,
	string(scope.TypeTalent):     true,
}

// ParseScope validates a scopeType/scopeId pair. The id may be omitted for the tenant
// scope, which always refers to the caller's tenant.
func ParseScope(scopeType, scopeID string) (scope.Ref, []FieldError) {
	var errs []FieldError

	if scopeType == "" {
		errs = append(errs, FieldError{Field: "scopeType", Message: "scopeType is required"})
	} else if !validScopeTypes[scopeType] {
		errs = append(errs, FieldError{Field: "scopeType", Message: fmt.Sprintf("scopeType must be one of: %s", joinKeys(validScopeTypes))})
	}

	var id uuid.UUID
	if scopeID != "" {
		parsed, err := uuid.Parse(scopeID)
		if err != nil {
			errs = append(errs, FieldError{Field: "scopeId", Message: "scopeId must be a valid UUID"})
		} else {
			id = parsed
		}
	} else if scopeType != string(scope.TypeTenant) && validScopeTypes[scopeType] {
		errs = append(errs, FieldError{Field: "scopeId", Message: "scopeId is required for " + scopeType + " scopes"})
	}

	if len(errs) > 0 {
		return scope.Ref{}, errs
	}
	return scope.Ref{Type: scope.Type(scopeType), ID: id}, nil
}

// joinKeys returns a sorted, comma-separated string of map keys.
func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, fmt.Sprintf("%q", k))
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
