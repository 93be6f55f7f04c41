package blocklist_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/blocklist"
)

func newEntry(pattern string, t blocklist.PatternType) blocklist.Entry {
	return blocklist.Entry{
		ID:          uuid.New(),
		Name:        pattern,
		Pattern:     pattern,
		PatternType: t,
		Severity:    blocklist.SeverityMedium,
		Action:      blocklist.ActionMask,
		Inherit:     true,
		IsActive:    true,
	}
}

func compile(t *testing.T, opts blocklist.CompileOptions, entries ...blocklist.Entry) *blocklist.Matcher {
	t.Helper()
	m, err := blocklist.Compile(blocklist.DefaultRegistry(), entries, opts)
	require.NoError(t, err)
	return m
}

type span struct {
	pattern    string
	start, end int
	text       string
}

func spans(matches []blocklist.Match) []span {
	out := make([]span, len(matches))
	for i, m := range matches {
		out[i] = span{pattern: m.Pattern, start: m.Start, end: m.End, text: m.Text}
	}
	return out
}

func TestMatch_OverlappingKeywords(t *testing.T) {
	m := compile(t, blocklist.CompileOptions{},
		newEntry("he", blocklist.PatternKeyword),
		newEntry("she", blocklist.PatternKeyword),
		newEntry("hers", blocklist.PatternKeyword),
	)

	got := spans(m.Match("ushers"))
	assert.Equal(t, []span{
		{pattern: "she", start: 1, end: 4, text: "she"},
		{pattern: "hers", start: 2, end: 6, text: "hers"},
		{pattern: "he", start: 2, end: 4, text: "he"},
	}, got)
}

func TestMatch_OffsetsMapToOriginalText(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    span
	}{
		{
			name:    "full-width letters",
			pattern: "bad",
			text:    "ＢＡＤ word",
			want:    span{pattern: "bad", start: 0, end: 3, text: "ＢＡＤ"},
		},
		{
			name:    "sharp s folds to ss",
			pattern: "strasse",
			text:    "Die Straße",
			want:    span{pattern: "strasse", start: 4, end: 10, text: "Straße"},
		},
		{
			name:    "ligature expands under NFKC",
			pattern: "fine",
			text:    "so ﬁne",
			want:    span{pattern: "fine", start: 3, end: 6, text: "ﬁne"},
		},
		{
			name:    "upper case pattern",
			pattern: "SPAM",
			text:    "no spam here",
			want:    span{pattern: "SPAM", start: 3, end: 7, text: "spam"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compile(t, blocklist.CompileOptions{}, newEntry(tt.pattern, blocklist.PatternKeyword))
			got := spans(m.Match(tt.text))
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestMatch_SameOriginalSpanReportedOnce(t *testing.T) {
	// "ß" normalizes to "ss", so "s" is found twice inside one original rune.
	m := compile(t, blocklist.CompileOptions{}, newEntry("s", blocklist.PatternKeyword))

	got := spans(m.Match("ß"))
	assert.Equal(t, []span{{pattern: "s", start: 0, end: 1, text: "ß"}}, got)
}

func TestMatch_WholeWord(t *testing.T) {
	entry := newEntry("ass", blocklist.PatternKeyword)

	loose := compile(t, blocklist.CompileOptions{}, entry)
	assert.Len(t, loose.Match("class ass"), 2)

	strict := compile(t, blocklist.CompileOptions{WholeWord: true}, entry)
	got := spans(strict.Match("class ass"))
	assert.Equal(t, []span{{pattern: "ass", start: 6, end: 9, text: "ass"}}, got)

	assert.Empty(t, strict.Match("bad_ass"))
}

func TestMatch_WholeWordIgnoredForUnspacedScripts(t *testing.T) {
	m := compile(t, blocklist.CompileOptions{WholeWord: true}, newEntry("馬鹿", blocklist.PatternKeyword))

	got := spans(m.Match("お前は馬鹿だ"))
	assert.Equal(t, []span{{pattern: "馬鹿", start: 3, end: 5, text: "馬鹿"}}, got)
}

func TestMatch_Wildcard(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    []span
	}{
		{
			name:    "star spans letters",
			pattern: "f*ck",
			text:    "what the fuuuck",
			want:    []span{{pattern: "f*ck", start: 9, end: 15, text: "fuuuck"}},
		},
		{
			name:    "star never crosses whitespace",
			pattern: "f*ck",
			text:    "f ck",
			want:    []span{},
		},
		{
			name:    "star never crosses vertical tab",
			pattern: "ba*d",
			text:    "bax\vyd",
			want:    []span{},
		},
		{
			name:    "star never crosses unicode separators",
			pattern: "ba*d",
			text:    "bax\u2028yd bax\u0085yd bax\u1680yd",
			want:    []span{},
		},
		{
			name:    "question mark never matches a line separator",
			pattern: "b?d",
			text:    "b\u2029d",
			want:    []span{},
		},
		{
			name:    "question mark is one rune",
			pattern: "b?d",
			text:    "bad bid b d bd",
			want: []span{
				{pattern: "b?d", start: 0, end: 3, text: "bad"},
				{pattern: "b?d", start: 4, end: 7, text: "bid"},
			},
		},
		{
			name:    "trailing star is greedy",
			pattern: "spam*",
			text:    "Spammer spam",
			want: []span{
				{pattern: "spam*", start: 0, end: 7, text: "Spammer"},
				{pattern: "spam*", start: 8, end: 12, text: "spam"},
			},
		},
		{
			name:    "regex metacharacters are literal",
			pattern: "a.b*",
			text:    "axb a.bcd",
			want:    []span{{pattern: "a.b*", start: 4, end: 9, text: "a.bcd"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compile(t, blocklist.CompileOptions{}, newEntry(tt.pattern, blocklist.PatternWildcard))
			assert.Equal(t, tt.want, spans(m.Match(tt.text)))
		})
	}
}

func TestMatch_Regex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    []span
	}{
		{
			name:    "case insensitive",
			pattern: `b[a@]d\s+word`,
			text:    "BAD   Word",
			want:    []span{{pattern: `b[a@]d\s+word`, start: 0, end: 10, text: "BAD   Word"}},
		},
		{
			name:    "runs on width folded text",
			pattern: `\d{3}`,
			text:    "call １２３",
			want:    []span{{pattern: `\d{3}`, start: 5, end: 8, text: "１２３"}},
		},
		{
			name:    "pattern classes are not folded",
			pattern: `\S+@\S+`,
			text:    "mail me@example.com now",
			want:    []span{{pattern: `\S+@\S+`, start: 5, end: 19, text: "me@example.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compile(t, blocklist.CompileOptions{}, newEntry(tt.pattern, blocklist.PatternRegex))
			assert.Equal(t, tt.want, spans(m.Match(tt.text)))
		})
	}
}

func TestMatch_SortsByEntryIDOnEqualSpans(t *testing.T) {
	a := newEntry("bad", blocklist.PatternKeyword)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := newEntry("bad", blocklist.PatternRegex)
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	m := compile(t, blocklist.CompileOptions{}, b, a)
	got := m.Match("bad")

	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].EntryID)
	assert.Equal(t, b.ID, got[1].EntryID)
}

func TestMatch_CopiesEntryFields(t *testing.T) {
	e := newEntry("bad", blocklist.PatternKeyword)
	e.Category = "profanity"
	e.Severity = blocklist.SeverityHigh
	e.Action = blocklist.ActionReject

	got := compile(t, blocklist.CompileOptions{}, e).Match("so bad")
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].EntryID)
	assert.Equal(t, "profanity", got[0].Category)
	assert.Equal(t, blocklist.SeverityHigh, got[0].Severity)
	assert.Equal(t, blocklist.ActionReject, got[0].Action)
}

func TestMatch_EmptyInputs(t *testing.T) {
	empty := compile(t, blocklist.CompileOptions{})
	assert.Equal(t, 0, empty.Len())
	assert.NotNil(t, empty.Match("anything"))
	assert.Empty(t, empty.Match("anything"))

	m := compile(t, blocklist.CompileOptions{}, newEntry("bad", blocklist.PatternKeyword))
	assert.Empty(t, m.Match(""))
}

func TestCompile_UnknownPatternType(t *testing.T) {
	_, err := blocklist.Compile(blocklist.DefaultRegistry(), []blocklist.Entry{newEntry("x", "glob")}, blocklist.CompileOptions{})
	assert.ErrorIs(t, err, blocklist.ErrUnknownPatternType)
}
