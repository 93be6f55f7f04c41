package blocklist

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPatternLength is the longest accepted pattern, in runes.
const MaxPatternLength = 500

// ErrInvalidPattern is returned when a pattern cannot be compiled for its type.
var ErrInvalidPattern = errors.New("invalid pattern")

// ErrUnknownPatternType is returned for pattern types without a registered compiler.
var ErrUnknownPatternType = errors.New("unknown pattern type")

// CompileOptions tune how patterns are compiled.
type CompileOptions struct {
	WholeWord bool
}

// Finder reports occurrences of compiled patterns in normalized text. Indices passed to
// emit refer to the patterns slice given to Compile; start and end are normalized rune
// offsets.
type Finder interface {
	find(text *normalizedText, emit func(pattern, start, end int))
}

// Compiler validates and compiles the patterns of one pattern type.
type Compiler interface {
	Validate(pattern string) error
	Compile(patterns []string, opts CompileOptions) (Finder, error)
}

// Registry maps pattern types to compilers.
type Registry struct {
	compilers map[PatternType]Compiler
}

// NewRegistry creates an empty compiler registry.
func NewRegistry() *Registry {
	return &Registry{
		compilers: make(map[PatternType]Compiler),
	}
}

// DefaultRegistry returns a registry with the keyword, wildcard and regex compilers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PatternKeyword, keywordCompiler{})
	r.Register(PatternWildcard, wildcardCompiler{})
	r.Register(PatternRegex, regexCompiler{})
	return r
}

// Register adds a compiler under the given pattern type.
func (r *Registry) Register(t PatternType, c Compiler) {
	r.compilers[t] = c
}

// Get returns the compiler registered for t.
func (r *Registry) Get(t PatternType) (Compiler, bool) {
	c, ok := r.compilers[t]
	return c, ok
}

// Has reports whether a compiler is registered for t.
func (r *Registry) Has(t PatternType) bool {
	_, ok := r.compilers[t]
	return ok
}

// Types returns the registered pattern types in sorted order.
func (r *Registry) Types() []PatternType {
	types := make([]PatternType, 0, len(r.compilers))
	for t := range r.compilers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate checks pattern against the compiler for t.
func (r *Registry) Validate(t PatternType, pattern string) error {
	c, ok := r.compilers[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPatternType, t)
	}
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("%w: pattern is empty", ErrInvalidPattern)
	}
	if utf8.RuneCountInString(pattern) > MaxPatternLength {
		return fmt.Errorf("%w: pattern exceeds %d characters", ErrInvalidPattern, MaxPatternLength)
	}
	return c.Validate(pattern)
}

// dedupeKey identifies patterns that match the same thing.
func dedupeKey(t PatternType, pattern string) string {
	if t == PatternRegex {
		return string(t) + "\x00" + pattern
	}
	return string(t) + "\x00" + Normalize(pattern)
}

// --- keyword ---

type keywordCompiler struct{}

func (keywordCompiler) Validate(pattern string) error {
	if strings.TrimSpace(Normalize(pattern)) == "" {
		return fmt.Errorf("%w: keyword is empty after normalization", ErrInvalidPattern)
	}
	return nil
}

func (keywordCompiler) Compile(patterns []string, opts CompileOptions) (Finder, error) {
	runes := make([][]rune, len(patterns))
	wordOnly := make([]bool, len(patterns))
	for i, p := range patterns {
		runes[i] = []rune(Normalize(p))
		wordOnly[i] = opts.WholeWord && allWordRunes(runes[i])
	}
	return &keywordFinder{ac: newAutomaton(runes), wordOnly: wordOnly}, nil
}

type keywordFinder struct {
	ac       *automaton
	wordOnly []bool
}

func (f *keywordFinder) find(text *normalizedText, emit func(pattern, start, end int)) {
	f.ac.scan(text.runes, func(p, start, end int) {
		if f.wordOnly[p] && !text.atWordBoundary(start, end) {
			return
		}
		emit(p, start, end)
	})
}

// --- wildcard ---

type wildcardCompiler struct{}

// nonSpace matches one rune for which unicode.IsSpace is false; RE2's \s covers ASCII only.
const nonSpace = `[^\s\v\x{85}\p{Z}]`

// wildcardExpr translates a wildcard pattern into a regular expression over normalized text.
func wildcardExpr(pattern string) (string, bool) {
	var b strings.Builder
	literal := false
	for _, r := range Normalize(pattern) {
		switch r {
		case '*':
			b.WriteString(nonSpace + `*`)
		case '?':
			b.WriteString(nonSpace)
		default:
			if !unicode.IsSpace(r) {
				literal = true
			}
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String(), literal
}

func (wildcardCompiler) Validate(pattern string) error {
	expr, literal := wildcardExpr(pattern)
	if !literal {
		return fmt.Errorf("%w: wildcard needs at least one literal character", ErrInvalidPattern)
	}
	if _, err := regexp.Compile(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

func (wildcardCompiler) Compile(patterns []string, _ CompileOptions) (Finder, error) {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		expr, _ := wildcardExpr(p)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		res[i] = re
	}
	return regexFinder(res), nil
}

// --- regex ---

type regexCompiler struct{}

func (regexCompiler) Validate(pattern string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if re.MatchString("") {
		return fmt.Errorf("%w: regex matches the empty string", ErrInvalidPattern)
	}
	return nil
}

func (regexCompiler) Compile(patterns []string, _ CompileOptions) (Finder, error) {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		res[i] = re
	}
	return regexFinder(res), nil
}

// regexFinder runs each expression over the normalized text. Zero-length matches are skipped.
type regexFinder []*regexp.Regexp

func (f regexFinder) find(text *normalizedText, emit func(pattern, start, end int)) {
	for i, re := range f {
		for _, loc := range re.FindAllStringIndex(text.str, -1) {
			if loc[0] == loc[1] {
				continue
			}
			emit(i, text.runeAtByte[loc[0]], text.runeAtByte[loc[1]])
		}
	}
}
