package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/match"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var outputFormats = []string{outputText, outputJSON}

type MatchArgs struct {
	Output   string
	MinScore float64
}

func (ma *MatchArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&ma.MinScore, "min-score", 0, "Reject candidates scoring below this value")
	cmd.Flags().StringVarP(&ma.Output, "output", "o", outputText,
		fmt.Sprintf("Output format, one of: %s", outputFormats))

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

// matchReport is the machine readable output of the match command.
type matchReport struct {
	Winner     *match.Result  `json:"winner,omitempty"`
	Preferred  string         `json:"preferred"`
	Candidates []match.Result `json:"candidates"`
}

func NewMatchCmd() *cobra.Command {
	ma := &MatchArgs{}

	cmd := &cobra.Command{
		Use:   "match PREFERRED CANDIDATE...",
		Short: "Score candidate chips against a preferred text",
		Example: `  # Which chip would be picked for "podcast"?
  chipper match podcast All Music Podcasts News`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ma.MinScore < 0 || ma.MinScore > 1 {
				return fmt.Errorf("invalid argument %q for \"--min-score\": must be between 0 and 1",
					fmt.Sprint(ma.MinScore))
			}

			candidates := make([]chip.Candidate, 0, len(args)-1)
			for i, text := range args[1:] {
				candidates = append(candidates, chip.Candidate{Text: text, Position: i})
			}

			m := match.NewMatcher(match.WithMinScore(ma.MinScore))

			report := matchReport{
				Preferred:  args[0],
				Candidates: m.Rank(args[0], candidates),
			}
			if best, ok := m.Best(args[0], candidates); ok {
				report.Winner = &best
			}

			return writeMatchReport(cmd.OutOrStdout(), ma.Output, report)
		},
	}
	ma.AddFlags(cmd)

	return cmd
}

func writeMatchReport(w io.Writer, format string, report matchReport) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		return nil

	case outputText:
		var (
			winStyle = lipgloss.NewStyle().Bold(true)
			dimStyle = lipgloss.NewStyle().Faint(true)
		)

		width := 0
		for _, r := range report.Candidates {
			width = max(width, lipgloss.Width(r.Candidate.Text))
		}

		var sb strings.Builder

		for _, r := range report.Candidates {
			line := fmt.Sprintf("%-*s  %.3f", width, r.Candidate.Text, r.Score)

			switch {
			case report.Winner != nil && report.Winner.Candidate == r.Candidate:
				sb.WriteString(winStyle.Render(line + "  <- selected"))
			default:
				sb.WriteString(dimStyle.Render(line))
			}

			sb.WriteString("\n")
		}

		if report.Winner == nil {
			sb.WriteString(fmt.Sprintf("no candidate matches %q\n", report.Preferred))
		}

		_, err := io.WriteString(w, sb.String())
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	}

	return fmt.Errorf("invalid argument %q for \"--output\": must be one of %s", format, outputFormats)
}
