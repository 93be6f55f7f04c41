package blocklist

import (
	"bytes"
	"fmt"
	"sort"
)

// Matcher matches text against a fixed set of entries. It is immutable once compiled and
// safe for concurrent use.
type Matcher struct {
	entries []Entry
	groups  []matcherGroup
}

type matcherGroup struct {
	finder Finder
	// entryIdx maps a pattern index of finder to an index in entries.
	entryIdx []int
}

// Compile builds a Matcher for entries using the compilers of reg.
func Compile(reg *Registry, entries []Entry, opts CompileOptions) (*Matcher, error) {
	m := &Matcher{entries: append([]Entry(nil), entries...)}

	byType := make(map[PatternType][]int)
	for i, e := range m.entries {
		if !reg.Has(e.PatternType) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPatternType, e.PatternType)
		}
		byType[e.PatternType] = append(byType[e.PatternType], i)
	}

	for _, t := range reg.Types() {
		idx, ok := byType[t]
		if !ok {
			continue
		}

		c, _ := reg.Get(t)
		patterns := make([]string, len(idx))
		for j, i := range idx {
			patterns[j] = m.entries[i].Pattern
		}
		finder, err := c.Compile(patterns, opts)
		if err != nil {
			return nil, fmt.Errorf("compiling %s patterns: %w", t, err)
		}
		m.groups = append(m.groups, matcherGroup{finder: finder, entryIdx: idx})
	}

	return m, nil
}

// Len returns the number of compiled entries.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// Match returns every match in text, sorted by start, longer spans first, then entry id.
func (m *Matcher) Match(text string) []Match {
	matches := []Match{}
	if len(m.entries) == 0 || text == "" {
		return matches
	}

	n := normalize(text)

	type spanKey struct {
		entry      int
		start, end int
	}
	seen := make(map[spanKey]bool)

	for _, g := range m.groups {
		g.finder.find(n, func(p, start, end int) {
			if start >= end {
				return
			}
			ei := g.entryIdx[p]
			from, to := n.span(start, end)
			key := spanKey{entry: ei, start: from, end: to}
			if seen[key] {
				return
			}
			seen[key] = true

			e := &m.entries[ei]
			matches = append(matches, Match{
				EntryID:     e.ID,
				Name:        e.Name,
				Pattern:     e.Pattern,
				PatternType: e.PatternType,
				Scope:       e.Scope,
				Severity:    e.Severity,
				Action:      e.Action,
				Category:    e.Category,
				Start:       from,
				End:         to,
				Text:        string(n.original[from:to]),
			})
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End-a.Start != b.End-b.Start {
			return a.End-a.Start > b.End-b.Start
		}
		return bytes.Compare(a.EntryID[:], b.EntryID[:]) < 0
	})

	return matches
}
