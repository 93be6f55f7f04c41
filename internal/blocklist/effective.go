package blocklist

import (
	"sort"

	"github.com/google/uuid"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// Effective returns the entries that apply to the target of chain, given every entry and
// override stored on the chain's levels.
//
// An entry applies when it is active and is owned by the target, or is owned by a broader
// level and inherits. The narrowest override between owner and target decides whether an
// inherited entry is disabled; ForceUse entries ignore overrides. Entries with the same
// pattern collapse to one: the narrowest owner wins unless a broader one is ForceUse.
func Effective(chain scope.Chain, entries []Entry, overrides []Override) []Entry {
	if len(chain) == 0 {
		return []Entry{}
	}
	target := len(chain) - 1

	// Narrowest override level per entry.
	type decision struct {
		level    int
		disabled bool
	}
	decisions := make(map[uuid.UUID]decision)
	for _, o := range overrides {
		lvl := chain.Index(o.Scope)
		if lvl < 0 {
			continue
		}
		if d, ok := decisions[o.EntryID]; ok && d.level >= lvl {
			continue
		}
		decisions[o.EntryID] = decision{level: lvl, disabled: o.Disabled}
	}

	type candidate struct {
		entry Entry
		level int
	}
	winners := make(map[string]candidate)

	for _, e := range entries {
		lvl := chain.Index(e.Scope)
		if lvl < 0 || !e.IsActive {
			continue
		}
		if lvl < target && !e.Inherit {
			continue
		}
		if !e.ForceUse {
			if d, ok := decisions[e.ID]; ok && d.level > lvl && d.disabled {
				continue
			}
		}

		c := candidate{entry: e, level: lvl}
		key := dedupeKey(e.PatternType, e.Pattern)
		if cur, ok := winners[key]; !ok || beats(c.entry, c.level, cur.entry, cur.level) {
			winners[key] = c
		}
	}

	result := make([]candidate, 0, len(winners))
	for _, c := range winners {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].level != result[j].level {
			return result[i].level < result[j].level
		}
		return earlier(result[i].entry, result[j].entry)
	})

	out := make([]Entry, len(result))
	for i, c := range result {
		out[i] = c.entry
	}
	return out
}

// beats reports whether entry a at level la wins over entry b at level lb for the same pattern.
func beats(a Entry, la int, b Entry, lb int) bool {
	if a.ForceUse != b.ForceUse {
		return a.ForceUse
	}
	if la != lb {
		if a.ForceUse {
			return la < lb
		}
		return la > lb
	}
	return earlier(a, b)
}

func earlier(a, b Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
