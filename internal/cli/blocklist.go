package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/creatorhub/creatorhub/internal/blocklist"
)

type matchOutput struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Action   string `json:"action"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Text     string `json:"text"`
}

type checkOutput struct {
	IsBlocked    bool          `json:"isBlocked"`
	Action       string        `json:"action"`
	Severity     string        `json:"severity"`
	Matches      []matchOutput `json:"matches"`
	FilteredText string        `json:"filteredText"`
}

func newBlocklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Blocklist tools that run without a database",
	}
	cmd.AddCommand(newBlocklistTestCmd())
	return cmd
}

func newBlocklistTestCmd() *cobra.Command {
	var rulesPath, text string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check text against a YAML rules file",
		Long: `Check text against a YAML rules file. With --text - the text is read from stdin.

Example rules file:

  settings:
    maskChar: "#"
    blockSeverity: high
  entries:
    - name: slur
      pattern: badword
      severity: high
      action: reject`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(rulesPath)
			if err != nil {
				return fmt.Errorf("reading rules: %w", err)
			}
			rs, err := blocklist.LoadRules(data, blocklist.DefaultRegistry())
			if err != nil {
				return err
			}

			if text == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(raw)
			}

			res := rs.Check(text)
			out := checkOutput{
				IsBlocked:    res.IsBlocked,
				Action:       string(res.Action),
				Severity:     string(res.Severity),
				Matches:      make([]matchOutput, 0, len(res.Matches)),
				FilteredText: res.FilteredText,
			}
			for _, m := range res.Matches {
				out.Matches = append(out.Matches, matchOutput{
					Name:     m.Name,
					Pattern:  m.Pattern,
					Severity: string(m.Severity),
					Action:   string(m.Action),
					Start:    m.Start,
					End:      m.End,
					Text:     m.Text,
				})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "f", "", "Path to the rules file")
	cmd.Flags().StringVar(&text, "text", "", "Text to check, or - for stdin")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}
