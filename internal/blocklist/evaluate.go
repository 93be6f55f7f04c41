package blocklist

import (
	"unicode/utf8"

	"github.com/creatorhub/creatorhub/internal/settings"
)

// Policy is the scope configuration that drives a check.
type Policy struct {
	Enabled       bool
	MaskChar      rune
	BlockSeverity Severity
	WholeWord     bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return PolicyFrom(settings.Resolve(settings.DefaultRegistry(), nil, nil))
}

// PolicyFrom reads the blocklist settings out of resolved scope settings.
func PolicyFrom(res settings.Resolved) Policy {
	mask, _ := utf8.DecodeRuneInString(res.String(settings.KeyBlocklistMaskChar))
	if mask == utf8.RuneError {
		mask = '*'
	}
	return Policy{
		Enabled:       res.Bool(settings.KeyBlocklistEnabled),
		MaskChar:      mask,
		BlockSeverity: Severity(res.String(settings.KeyBlocklistBlockSeverity)),
		WholeWord:     res.Bool(settings.KeyBlocklistWholeWord),
	}
}

// Evaluate decides the outcome of matches found in text under p.
func Evaluate(text string, matches []Match, p Policy) Result {
	if !p.Enabled || len(matches) == 0 {
		return Result{
			Action:       ActionNone,
			Severity:     SeverityNone,
			Matches:      []Match{},
			FilteredText: text,
		}
	}

	res := Result{
		Action:   ActionNone,
		Severity: SeverityNone,
		Matches:  matches,
	}

	threshold := SeverityRank(p.BlockSeverity)
	runes := []rune(text)
	masked := make([]bool, len(runes))

	for _, m := range matches {
		res.Action = MaxAction(res.Action, m.Action)
		res.Severity = MaxSeverity(res.Severity, m.Severity)

		if m.Action == ActionReject {
			res.IsBlocked = true
		}
		if threshold > 0 && SeverityRank(m.Severity) >= threshold {
			res.IsBlocked = true
		}

		if m.Action == ActionMask || m.Action == ActionReject {
			for i := m.Start; i < m.End && i < len(runes); i++ {
				masked[i] = true
			}
		}
	}

	for i := range runes {
		if masked[i] {
			runes[i] = p.MaskChar
		}
	}
	res.FilteredText = string(runes)

	return res
}
