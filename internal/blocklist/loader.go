package blocklist

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/creatorhub/creatorhub/internal/scope"
)

// rulesFile is the YAML layout read by LoadRules.
type rulesFile struct {
	Settings struct {
		Enabled       *bool   `json:"enabled"`
		MaskChar      *string `json:"maskChar"`
		BlockSeverity *string `json:"blockSeverity"`
		WholeWord     *bool   `json:"wholeWord"`
	} `json:"settings"`
	Entries []struct {
		Name        string `json:"name"`
		Pattern     string `json:"pattern"`
		PatternType string `json:"patternType"`
		Severity    string `json:"severity"`
		Action      string `json:"action"`
		Category    string `json:"category"`
	} `json:"entries"`
}

// rulesNamespace seeds the ids of entries loaded from a file so runs are reproducible.
var rulesNamespace = uuid.MustParse("6f1c3a52-2d8e-4f0b-9a57-0c4e2b7d9e11")

// LoadRules builds a ruleset from a YAML rules document, for checks that run without a database.
//
//	settings:
//	  maskChar: "#"
//	  blockSeverity: high
//	entries:
//	  - name: slur
//	    pattern: badword
//	    patternType: keyword
//	    severity: high
//	    action: reject
func LoadRules(data []byte, reg *Registry) (*Ruleset, error) {
	var f rulesFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	policy := DefaultPolicy()
	if f.Settings.Enabled != nil {
		policy.Enabled = *f.Settings.Enabled
	}
	if f.Settings.MaskChar != nil {
		if utf8.RuneCountInString(*f.Settings.MaskChar) != 1 {
			return nil, fmt.Errorf("settings.maskChar must be exactly one character")
		}
		policy.MaskChar, _ = utf8.DecodeRuneInString(*f.Settings.MaskChar)
	}
	if f.Settings.BlockSeverity != nil {
		sev := Severity(*f.Settings.BlockSeverity)
		if sev != SeverityNone && SeverityRank(sev) == 0 {
			return nil, fmt.Errorf("settings.blockSeverity: unknown severity %q", sev)
		}
		policy.BlockSeverity = sev
	}
	if f.Settings.WholeWord != nil {
		policy.WholeWord = *f.Settings.WholeWord
	}

	root := scope.Ref{Type: scope.TypeTenant}
	chain := scope.Chain{root}

	entries := make([]Entry, 0, len(f.Entries))
	for i, fe := range f.Entries {
		e := Entry{
			ID:          uuid.NewSHA1(rulesNamespace, []byte(strconv.Itoa(i))),
			Scope:       root,
			Name:        fe.Name,
			Pattern:     fe.Pattern,
			PatternType: PatternType(fe.PatternType),
			Severity:    Severity(fe.Severity),
			Action:      Action(fe.Action),
			Category:    fe.Category,
			Inherit:     true,
			IsActive:    true,
			// File order stands in for creation order when duplicates collapse.
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}
		if e.Name == "" {
			e.Name = e.Pattern
		}
		if e.PatternType == "" {
			e.PatternType = PatternKeyword
		}
		if SeverityRank(e.Severity) == 0 {
			return nil, fmt.Errorf("entries[%d].severity: must be low, medium or high", i)
		}
		if ActionRank(e.Action) == 0 {
			return nil, fmt.Errorf("entries[%d].action: must be flag, mask or reject", i)
		}
		if err := reg.Validate(e.PatternType, e.Pattern); err != nil {
			return nil, fmt.Errorf("entries[%d].pattern: %w", i, err)
		}
		entries = append(entries, e)
	}

	entries = Effective(chain, entries, nil)
	matcher, err := Compile(reg, entries, CompileOptions{WholeWord: policy.WholeWord})
	if err != nil {
		return nil, err
	}

	return &Ruleset{
		Chain:   chain,
		Policy:  policy,
		Entries: entries,
		Matcher: matcher,
	}, nil
}

// Check evaluates text against the ruleset.
func (rs *Ruleset) Check(text string) Result {
	var matches []Match
	if rs.Policy.Enabled {
		matches = rs.Matcher.Match(text)
	}
	return Evaluate(text, matches, rs.Policy)
}
