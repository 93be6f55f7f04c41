package validation

import (
	"encoding/json"
	"strings"
)

// SetSettingRequest mirrors the fields needed for set setting validation.
type SetSettingRequest struct {
	Key   string
	Value json.RawMessage
}

// ValidateSetSettingRequest checks that a key and a value are present. The value itself
// is checked against the setting definition by the settings service.
func ValidateSetSettingRequest(req SetSettingRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.Key) == "" {
		errs = append(errs, FieldError{Field: "key", Message: "key is required"})
	}
	if len(req.Value) == 0 || string(req.Value) == "null" {
		errs = append(errs, FieldError{Field: "value", Message: "value is required"})
	}

	return errs
}
