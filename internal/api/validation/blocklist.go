package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/creatorhub/creatorhub/internal/blocklist"
)

var (
	validPatternTypes = map[string]bool{"keyword": true, "wildcard": true, "regex": true}
	validSeverities   = map[string]bool{"low": true, "medium": true, "high": true}
	validActions      = map[string]bool{"flag": true, "mask": true, "reject": true}
)

const (
	maxNameLength        = 255
	maxCategoryLength    = 100
	maxDescriptionLength = 1000
)

// CreateEntryRequest mirrors the fields needed for create entry validation.
type CreateEntryRequest struct {
	Name        string
	Pattern     string
	PatternType string
	Severity    string
	Action      string
	Category    string
	Description string
}

// ValidateCreateEntryRequest validates the fields of a create blocklist entry request.
// Pattern syntax is checked by the pattern compiler, not here.
func ValidateCreateEntryRequest(req CreateEntryRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(req.Name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)})
	}

	errs = append(errs, validatePattern(req.Pattern)...)
	errs = append(errs, validateEnum("patternType", req.PatternType, validPatternTypes)...)
	errs = append(errs, validateEnum("severity", req.Severity, validSeverities)...)
	errs = append(errs, validateEnum("action", req.Action, validActions)...)

	if utf8.RuneCountInString(req.Category) > maxCategoryLength {
		errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("category must be at most %d characters", maxCategoryLength)})
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", maxDescriptionLength)})
	}

	return errs
}

// UpdateEntryRequest mirrors the fields needed for update entry validation.
// Nil fields are not validated.
type UpdateEntryRequest struct {
	Name        *string
	Pattern     *string
	PatternType *string
	Severity    *string
	Action      *string
	Category    *string
	Description *string
}

// ValidateUpdateEntryRequest validates only non-nil fields on an update request.
func ValidateUpdateEntryRequest(req UpdateEntryRequest) []FieldError {
	var errs []FieldError

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			errs = append(errs, FieldError{Field: "name", Message: "name must not be empty"})
		} else if utf8.RuneCountInString(*req.Name) > maxNameLength {
			errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)})
		}
	}
	if req.Pattern != nil {
		errs = append(errs, validatePattern(*req.Pattern)...)
	}
	if req.PatternType != nil {
		errs = append(errs, validateEnum("patternType", *req.PatternType, validPatternTypes)...)
	}
	if req.Severity != nil {
		errs = append(errs, validateEnum("severity", *req.Severity, validSeverities)...)
	}
	if req.Action != nil {
		errs = append(errs, validateEnum("action", *req.Action, validActions)...)
	}
	if req.Category != nil && utf8.RuneCountInString(*req.Category) > maxCategoryLength {
		errs = append(errs, FieldError{Field: "category", Message: fmt.Sprintf("category must be at most %d characters", maxCategoryLength)})
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", maxDescriptionLength)})
	}

	return errs
}

// ValidateText checks text submitted for moderation.
func ValidateText(text string) []FieldError {
	if text == "" {
		return []FieldError{{Field: "text", Message: "text is required"}}
	}
	if utf8.RuneCountInString(text) > blocklist.MaxTextLength {
		return []FieldError{{Field: "text", Message: fmt.Sprintf("text must be at most %d characters", blocklist.MaxTextLength)}}
	}
	return nil
}

func validatePattern(pattern string) []FieldError {
	if strings.TrimSpace(pattern) == "" {
		return []FieldError{{Field: "pattern", Message: "pattern is required"}}
	}
	if utf8.RuneCountInString(pattern) > blocklist.MaxPatternLength {
		return []FieldError{{Field: "pattern", Message: fmt.Sprintf("pattern must be at most %d characters", blocklist.MaxPatternLength)}}
	}
	return nil
}

func validateEnum(field, value string, allowed map[string]bool) []FieldError {
	if value == "" {
		return []FieldError{{Field: field, Message: field + " is required"}}
	}
	if !allowed[value] {
		return []FieldError{{Field: field, Message: fmt.Sprintf("%s must be one of: %s", field, joinKeys(allowed))}}
	}
	return nil
}
