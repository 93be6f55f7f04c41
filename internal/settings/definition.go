// Package settings implements per-scope configuration values that inherit down the
// tenant → subsidiary → talent hierarchy.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"unicode/utf8"
)

// Built-in keys.
const (
	KeyBlocklistEnabled       = "blocklist.enabled"
	KeyBlocklistMaskChar      = "blocklist.mask_char"
	KeyBlocklistBlockSeverity = "blocklist.block_severity"
	KeyBlocklistWholeWord     = "blocklist.whole_word"
	KeyBlocklistWebhookURL    = "blocklist.webhook_url"
)

// ErrUnknownKey is returned for keys without a definition.
var ErrUnknownKey = errors.New("unknown setting key")

// ErrInvalidValue is returned when a value does not satisfy its definition.
var ErrInvalidValue = errors.New("invalid setting value")

// Kind is the JSON type a setting accepts.
type Kind string

const (
	KindBool   Kind = "bool"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindEnum   Kind = "enum"
)

// Definition describes one configurable key.
type Definition struct {
	Key         string
	Kind        Kind
	Default     json.RawMessage
	Allowed     []string // enum only
	Description string
	// Check runs after the kind check with the decoded value.
	Check func(v any) error
}

// Registry holds the known definitions.
type Registry struct {
	defs map[string]Definition
	keys []string
}

// NewRegistry builds a registry from defs. Keys are kept sorted.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.Key] = d
		r.keys = append(r.keys, d.Key)
	}
	sort.Strings(r.keys)
	return r
}

// DefaultRegistry returns the registry of built-in moderation settings.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Definition{
			Key:         KeyBlocklistEnabled,
			Kind:        KindBool,
			Default:     json.RawMessage(`true`),
			Description: "Whether blocklist matching runs for the scope",
		},
		Definition{
			Key:         KeyBlocklistMaskChar,
			Kind:        KindString,
			Default:     json.RawMessage(`"*"`),
			Description: "Character that replaces masked text",
			Check: func(v any) error {
				if utf8.RuneCountInString(v.(string)) != 1 {
					return errors.New("must be exactly one character")
				}
				return nil
			},
		},
		Definition{
			Key:         KeyBlocklistBlockSeverity,
			Kind:        KindEnum,
			Default:     json.RawMessage(`"none"`),
			Allowed:     []string{"none", "low", "medium", "high"},
			Description: "Matches at or above this severity block the text regardless of action",
		},
		Definition{
			Key:         KeyBlocklistWholeWord,
			Kind:        KindBool,
			Default:     json.RawMessage(`false`),
			Description: "Keyword entries made of word characters only match whole words",
		},
		Definition{
			Key:         KeyBlocklistWebhookURL,
			Kind:        KindString,
			Default:     json.RawMessage(`""`),
			Description: "Endpoint notified about rejected moderation checks",
			Check: func(v any) error {
				s := v.(string)
				if s == "" {
					return nil
				}
				u, err := url.Parse(s)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return errors.New("must be an absolute http(s) URL")
				}
				return nil
			},
		},
	)
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (Definition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	return slices.Clone(r.keys)
}

// Validate checks raw against the definition of key and returns its compact form.
func (r *Registry) Validate(key string, raw json.RawMessage) (json.RawMessage, error) {
	d, ok := r.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: not valid JSON", ErrInvalidValue, key)
	}

	switch d.Kind {
	case KindBool:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("%w: %s: must be a boolean", ErrInvalidValue, key)
		}
	case KindString:
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("%w: %s: must be a string", ErrInvalidValue, key)
		}
	case KindInt:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: %s: must be an integer", ErrInvalidValue, key)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: must be an integer", ErrInvalidValue, key)
		}
		v = i
	case KindEnum:
		s, ok := v.(string)
		if !ok || !slices.Contains(d.Allowed, s) {
			return nil, fmt.Errorf("%w: %s: must be one of %q", ErrInvalidValue, key, d.Allowed)
		}
	}

	if d.Check != nil {
		if err := d.Check(v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: not valid JSON", ErrInvalidValue, key)
	}
	return buf.Bytes(), nil
}
