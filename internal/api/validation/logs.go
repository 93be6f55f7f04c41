package validation

import (
	"net/url"
	"strconv"
	"time"

	"github.com/creatorhub/creatorhub/internal/auditlog"
)

var validLevels = map[string]bool{
	auditlog.LevelInfo:  true,
	auditlog.LevelWarn:  true,
	auditlog.LevelError: true,
}

// ParseLogQuery reads from, to, page, limit, level and the kindParam filter
// (objectType, eventType or integration) from a log list query string.
func ParseLogQuery(q url.Values, kindParam string) (auditlog.Filter, []FieldError) {
	var (
		f    auditlog.Filter
		errs []FieldError
	)

	parseTime := func(field string) *time.Time {
		raw := q.Get(field)
		if raw == "" {
			return nil
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: field + " must be an RFC 3339 timestamp"})
			return nil
		}
		return &ts
	}
	f.From = parseTime("from")
	f.To = parseTime("to")
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		errs = append(errs, FieldError{Field: "to", Message: "to must not be before from"})
	}

	parseInt := func(field string) int {
		raw := q.Get(field)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, FieldError{Field: field, Message: field + " must be a positive integer"})
			return 0
		}
		return n
	}
	f.Page = parseInt("page")
	f.Limit = parseInt("limit")

	if kind := q.Get(kindParam); kind != "" {
		f.Kind = &kind
	}

	if level := q.Get("level"); level != "" {
		if !validLevels[level] {
			errs = append(errs, FieldError{Field: "level", Message: "level must be one of: " + joinKeys(validLevels)})
		} else {
			f.Level = &level
		}
	}

	f.Normalize()
	return f, errs
}
