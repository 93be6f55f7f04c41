// Package auditlog stores and queries the three per-tenant audit trails: data changes,
// technical events and calls to external integrations.
package auditlog

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Change actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Tech event levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Integration directions.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// MaxBodySize caps stored integration request and response bodies, in bytes.
const MaxBodySize = 4 << 10

// ChangeLog represents a row in the change_logs table.
type ChangeLog struct {
	ID           uuid.UUID
	OccurredAt   time.Time
	OperatorID   string
	OperatorName string
	ObjectType   string
	ObjectID     string
	Action       string
	Before       json.RawMessage
	After        json.RawMessage
	RequestID    string
}

// TechEvent represents a row in the tech_event_logs table.
type TechEvent struct {
	ID         uuid.UUID
	OccurredAt time.Time
	Level      string
	EventType  string
	Scope      string
	Message    string
	Payload    json.RawMessage
	RequestID  string
}

// IntegrationLog represents a row in the integration_logs table.
type IntegrationLog struct {
	ID           uuid.UUID
	OccurredAt   time.Time
	Integration  string
	Direction    string
	Method       string
	Endpoint     string
	StatusCode   int
	DurationMS   int64
	RequestBody  string
	ResponseBody string
	Error        string
}

// Filter holds optional filters and pagination for listing log records.
type Filter struct {
	From *time.Time
	To   *time.Time
	// Kind filters on object_type, event_type or integration depending on the log.
	Kind  *string
	Level *string // tech events only
	Page  int     // default 1
	Limit int     // default 20
}

// Normalize applies pagination defaults and caps.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// Page holds the result of a paginated list query.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func marshalOrNil(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return b
}
