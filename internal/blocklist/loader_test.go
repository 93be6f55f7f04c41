package blocklist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/blocklist"
)

const rulesYAML = `
settings:
  maskChar: "#"
  blockSeverity: high
entries:
  - name: insult
    pattern: idiot
    severity: medium
    action: mask
  - pattern: "sc?m*"
    patternType: wildcard
    severity: high
    action: flag
  - pattern: IDIOT
    severity: low
    action: flag
`

func TestLoadRules(t *testing.T) {
	rs, err := blocklist.LoadRules([]byte(rulesYAML), blocklist.DefaultRegistry())
	require.NoError(t, err)

	// The two keyword entries collapse to the first one.
	require.Len(t, rs.Entries, 2)
	assert.Equal(t, '#', rs.Policy.MaskChar)
	assert.Equal(t, blocklist.SeverityHigh, rs.Policy.BlockSeverity)
	assert.True(t, rs.Policy.Enabled)

	res := rs.Check("You idiot, this is a scammer site")
	assert.True(t, res.IsBlocked)
	assert.Equal(t, blocklist.ActionMask, res.Action)
	assert.Equal(t, blocklist.SeverityHigh, res.Severity)
	assert.Equal(t, "You #####, this is a scammer site", res.FilteredText)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "insult", res.Matches[0].Name)
	assert.Equal(t, "scammer", res.Matches[1].Text)
}

func TestLoadRules_StableIDs(t *testing.T) {
	a, err := blocklist.LoadRules([]byte(rulesYAML), blocklist.DefaultRegistry())
	require.NoError(t, err)
	b, err := blocklist.LoadRules([]byte(rulesYAML), blocklist.DefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, a.Entries[0].ID, b.Entries[0].ID)
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "malformed", yaml: "entries: [\n"},
		{name: "unknown field", yaml: "entries:\n  - pattern: x\n    severity: low\n    action: flag\n    colour: red\n"},
		{name: "bad severity", yaml: "entries:\n  - pattern: x\n    severity: extreme\n    action: flag\n"},
		{name: "bad action", yaml: "entries:\n  - pattern: x\n    severity: low\n    action: delete\n"},
		{name: "bad pattern", yaml: "entries:\n  - pattern: \"(\"\n    patternType: regex\n    severity: low\n    action: flag\n"},
		{name: "bad mask char", yaml: "settings:\n  maskChar: \"##\"\n"},
		{name: "bad block severity", yaml: "settings:\n  blockSeverity: extreme\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := blocklist.LoadRules([]byte(tt.yaml), blocklist.DefaultRegistry())
			assert.Error(t, err)
		})
	}
}
