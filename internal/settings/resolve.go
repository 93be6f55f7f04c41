package settings

import (
	"encoding/json"
	"time"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// Value represents a row in the scoped_settings table.
type Value struct {
	Scope     scope.Ref
	Key       string
	Raw       json.RawMessage
	Locked    bool
	UpdatedBy string
	UpdatedAt time.Time
}

// Effective is the resolved value of one key for a chain.
type Effective struct {
	Key   string
	Value json.RawMessage
	// Source is the level the value came from; nil means the default applies.
	Source *scope.Ref
	// LockedBy is the level whose locked value is final, if any.
	LockedBy *scope.Ref
}

// Resolved maps every registered key to its effective value.
type Resolved map[string]Effective

// Resolve computes the effective value of every registered key over chain. Levels are
// walked broad to narrow; a narrower value replaces a broader one unless the broader one
// is locked.
func Resolve(reg *Registry, chain scope.Chain, values []Value) Resolved {
	byLevel := make(map[scope.Ref]map[string]Value, len(chain))
	for _, v := range values {
		if byLevel[v.Scope] == nil {
			byLevel[v.Scope] = make(map[string]Value)
		}
		byLevel[v.Scope][v.Key] = v
	}

	resolved := make(Resolved, len(reg.keys))
	for _, key := range reg.keys {
		def := reg.defs[key]
		eff := Effective{Key: key, Value: def.Default}

		for _, ref := range chain {
			v, ok := byLevel[ref][key]
			if !ok {
				continue
			}
			src := ref
			eff.Value = v.Raw
			eff.Source = &src
			if v.Locked {
				eff.LockedBy = &src
				break
			}
		}

		resolved[key] = eff
	}
	return resolved
}

// Bool decodes a boolean setting, falling back to false.
func (r Resolved) Bool(key string) bool {
	var b bool
	_ = json.Unmarshal(r[key].Value, &b)
	return b
}

// String decodes a string setting, falling back to "".
func (r Resolved) String(key string) string {
	var s string
	_ = json.Unmarshal(r[key].Value, &s)
	return s
}

// Int decodes an integer setting, falling back to 0.
func (r Resolved) Int(key string) int64 {
	var n int64
	_ = json.Unmarshal(r[key].Value, &n)
	return n
}
