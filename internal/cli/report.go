package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/macropower/chipper/pkg/analytics"
)

const defaultReportWindow = 7 * 24 * time.Hour

type ReportArgs struct {
	*RootArgs

	Filter string
	Output string
	Since  time.Duration
}

func (ra *ReportArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ra.Filter, "filter", "f", "", "Only show chips fuzzy matching this pattern")
	cmd.Flags().DurationVar(&ra.Since, "since", defaultReportWindow, "How far back to report")
	cmd.Flags().StringVarP(&ra.Output, "output", "o", outputText,
		fmt.Sprintf("Output format, one of: %s", outputFormats))

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

// usageReport is the machine readable output of the report command.
type usageReport struct {
	Since  time.Time        `json:"since"`
	Events map[string]int   `json:"events"`
	Usage  []usageReportRow `json:"usage"`
}

type usageReportRow struct {
	Chip     string  `json:"chip"`
	Source   string  `json:"source"`
	Sessions int     `json:"sessions"`
	Seconds  float64 `json:"seconds"`
}

func NewReportCmd(rootArgs *RootArgs) *cobra.Command {
	ra := &ReportArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize time spent with each chip",
		Example: `  # Usage over the last week:
  chipper report

  # Usage of music related chips over the last day:
  chipper report --since 24h --filter mus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ra.Since <= 0 {
				return fmt.Errorf("invalid argument %q for \"--since\": must be positive", ra.Since)
			}

			cfg, err := loadConfig(ra.RootArgs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			db, err := analytics.OpenSQLite(ctx, cfg.Analytics.Database)
			if err != nil {
				return fmt.Errorf("open analytics: %w", err)
			}
			defer db.Close()

			now := time.Now()
			report := usageReport{Since: now.Add(-ra.Since)}

			usage, err := db.Usage(ctx, report.Since)
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			counts, err := db.Counts(ctx)
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			report.Events = make(map[string]int, len(counts))
			for kind, n := range counts {
				report.Events[string(kind)] = n
			}

			for _, u := range filterUsage(usage, ra.Filter) {
				report.Usage = append(report.Usage, usageReportRow{
					Chip:     u.ChipText,
					Source:   u.ChipSource,
					Sessions: u.Sessions,
					Seconds:  u.Total.Seconds(),
				})
			}

			return writeUsageReport(cmd.OutOrStdout(), ra.Output, now, report)
		},
	}
	ra.AddFlags(cmd)

	return cmd
}

// filterUsage keeps the rows whose chip fuzzy matches pattern, best match
// first. An empty pattern keeps every row in its original order.
func filterUsage(usage []analytics.Usage, pattern string) []analytics.Usage {
	if pattern == "" {
		return usage
	}

	texts := make([]string, len(usage))
	for i, u := range usage {
		texts[i] = u.ChipText
	}

	matches := fuzzy.Find(pattern, texts)

	out := make([]analytics.Usage, 0, len(matches))
	for _, m := range matches {
		out = append(out, usage[m.Index])
	}

	return out
}

func writeUsageReport(w io.Writer, format string, now time.Time, report usageReport) error {
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
			titleStyle = lipgloss.NewStyle().Bold(true)
			dimStyle   = lipgloss.NewStyle().Faint(true)
			sb         strings.Builder
		)

		sb.WriteString(titleStyle.Render("Usage since "+humanize.Time(report.Since)) + "\n")

		if len(report.Usage) == 0 {
			sb.WriteString(dimStyle.Render("  no sessions recorded") + "\n")
		}

		width := 0
		for _, row := range report.Usage {
			width = max(width, lipgloss.Width(row.Chip))
		}

		for _, row := range report.Usage {
			total := time.Duration(row.Seconds * float64(time.Second))
			sb.WriteString(fmt.Sprintf("  %-*s  %s  %s\n",
				width, row.Chip,
				formatDuration(now, total),
				dimStyle.Render(fmt.Sprintf("%s sessions, %s", humanize.Comma(int64(row.Sessions)), row.Source)),
			))
		}

		kinds := make([]string, 0, len(report.Events))
		for kind := range report.Events {
			kinds = append(kinds, kind)
		}
		slices.Sort(kinds)

		if len(kinds) > 0 {
			sb.WriteString("\n" + titleStyle.Render("Events") + "\n")
		}

		for _, kind := range kinds {
			sb.WriteString(fmt.Sprintf("  %-24s %s\n", kind, humanize.Comma(int64(report.Events[kind]))))
		}

		_, err := io.WriteString(w, sb.String())
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	}

	return fmt.Errorf("invalid argument %q for \"--output\": must be one of %s", format, outputFormats)
}

// formatDuration renders d the way humanize renders relative times, such as
// "3 hours".
func formatDuration(now time.Time, d time.Duration) string {
	if d < time.Second {
		return "under a second"
	}

	return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
}
