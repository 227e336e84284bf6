package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
)

func NewPrefsCmd(ra *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and edit chip preferences",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		newPrefsShowCmd(ra),
		newPrefsSetGlobalCmd(ra),
		newPrefsAddRuleCmd(ra),
		newPrefsRemoveRuleCmd(ra),
		newPrefsActiveCmd(ra),
	)

	return cmd
}

// openStore opens the preferences file. Unlike the run command, editing
// commands refuse to work on a file that cannot be loaded.
func openStore(ra *RootArgs, opts ...preference.MemoryOpt) (*preference.FileStore, error) {
	store, err := preference.NewFileStore(ra.GetPreferencesPath(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open preferences %q: %w", store.Path(), err)
	}

	return store, nil
}

func newPrefsShowCmd(ra *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the preferences document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(ra)
			if err != nil {
				return err
			}

			b, err := store.Preferences().MarshalYAML()
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			return writeYAML(cmd.OutOrStdout(), b)
		},
	}
}

func newPrefsSetGlobalCmd(ra *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "set-global VALUE",
		Short: "Set the chip selected when no time rule is active",
		Long:  "Set the chip selected when no time rule is active. An empty VALUE clears it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ra)
			if err != nil {
				return err
			}

			err = store.SetGlobal(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("set global preference: %w", err)
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "global preference set to %q\n", args[0]))

			return nil
		},
	}
}

type AddRuleArgs struct {
	When      string
	Days      []string
	StartHour int
	EndHour   int
	Disabled  bool
}

func newPrefsAddRuleCmd(ra *RootArgs) *cobra.Command {
	args := &AddRuleArgs{}

	cmd := &cobra.Command{
		Use:   "add-rule ID PREFERENCE",
		Short: "Add a time rule",
		Example: `  # Select "News" on weekday mornings:
  chipper prefs add-rule mornings News --days mon-fri --start 7 --end 10

  # Select "Podcasts" late at night, on weekends only:
  chipper prefs add-rule late Podcasts --days sat,sun --start 22 --end 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			days, err := parseDays(args.Days)
			if err != nil {
				return fmt.Errorf("invalid argument for \"--days\": %w", err)
			}

			r := &rule.TimeRule{
				ID:         pos[0],
				Preference: pos[1],
				Days:       days,
				StartHour:  args.StartHour,
				EndHour:    args.EndHour,
				When:       args.When,
				Disabled:   args.Disabled,
			}

			err = r.Validate()
			if err != nil {
				return fmt.Errorf("add time rule: %w", err)
			}

			store, err := openStore(ra)
			if err != nil {
				return err
			}

			err = store.AddTimeRule(cmd.Context(), r)
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "added time rule %s: %s\n", r.ID, r))

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&args.Days, "days", []string{"mon-sun"},
		"Days the rule applies on, as names, numbers (0 is Sunday) or ranges")
	cmd.Flags().IntVar(&args.StartHour, "start", 0, "First hour of the range, 0-23")
	cmd.Flags().IntVar(&args.EndHour, "end", 0, "Hour the range ends before, 0-23")
	cmd.Flags().StringVar(&args.When, "when", "", "Additional CEL condition")
	cmd.Flags().BoolVar(&args.Disabled, "disabled", false, "Add the rule disabled")

	must(cmd.MarkFlagRequired("start"))
	must(cmd.MarkFlagRequired("end"))

	return cmd
}

func newPrefsRemoveRuleCmd(ra *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:               "remove-rule ID",
		Short:             "Remove a time rule",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: ruleCompletion(ra),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ra)
			if err != nil {
				return err
			}

			err = store.DeleteTimeRule(cmd.Context(), args[0])
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "removed time rule %s\n", args[0]))

			return nil
		},
	}
}

func newPrefsActiveCmd(ra *RootArgs) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "active",
		Short: "Print the preference that applies now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []preference.MemoryOpt

			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid argument %q for \"--at\": %w", at, err)
				}

				opts = append(opts, preference.WithClock(clockwork.NewFakeClockAt(t)))
			}

			store, err := openStore(ra, opts...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			active, err := store.ActiveTimePreference(ctx)
			if err != nil {
				return fmt.Errorf("read time rules: %w", err)
			}
			if active != nil {
				mustN(fmt.Fprintf(w, "%s (time rule %s: %s)\n", active.Preference, active.ID, active))
				return nil
			}

			global, err := store.GlobalPreference(ctx)
			if err != nil {
				return fmt.Errorf("read global preference: %w", err)
			}
			if global == "" {
				mustN(fmt.Fprintln(w, "no preference"))
				return nil
			}

			mustN(fmt.Fprintf(w, "%s (global)\n", global))

			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Evaluate at this RFC 3339 time instead of now")

	return cmd
}

func ruleCompletion(ra *RootArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		store, err := openStore(ra)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		rules := store.TimeRules()
		completions := make([]cobra.Completion, 0, len(rules))
		for _, r := range rules {
			completions = append(completions, cobra.CompletionWithDesc(r.ID, r.String()))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

var weekdays = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// parseDays parses day names, numbers and inclusive ranges such as
// "mon-fri" into sorted, unique weekday numbers. Ranges may wrap, so
// "fri-mon" is Friday through Monday.
func parseDays(values []string) ([]int, error) {
	var seen [7]bool

	for _, v := range values {
		from, to, isRange := strings.Cut(strings.TrimSpace(v), "-")

		start, err := parseDay(from)
		if err != nil {
			return nil, err
		}

		end := start
		if isRange {
			end, err = parseDay(to)
			if err != nil {
				return nil, err
			}
		}

		for d := start; ; d = (d + 1) % 7 {
			seen[d] = true
			if d == end {
				break
			}
		}
	}

	var days []int
	for d, ok := range seen {
		if ok {
			days = append(days, d)
		}
	}

	return days, nil
}

func parseDay(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if d, ok := weekdays[s]; ok {
		return d, nil
	}
	if len(s) > 3 {
		if d, ok := weekdays[s[:3]]; ok && strings.HasPrefix(time.Weekday(d).String(), strings.ToUpper(s[:1])+s[1:]) {
			return d, nil
		}
	}

	d, err := strconv.Atoi(s)
	if err != nil || d < 0 || d > 6 {
		return 0, fmt.Errorf("%q is not a day", s)
	}

	return d, nil
}
