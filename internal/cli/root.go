package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/chipper/api/v1beta1/configs"
	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/log"
)

const (
	cmdName = "chipper"
	cmdDesc = `Selects your preferred feed filter chip, by schedule or by habit.`
)

type RootArgs struct {
	LogLevel        string
	LogFormat       string
	ConfigPath      string
	PreferencesPath string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the chipper configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.PreferencesPath, "preferences", "", "Path to the chipper preferences file")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	for _, name := range []string{"config", "preferences"} {
		err = cmd.MarkPersistentFlagFilename(name, "yaml", "yml")
		if err != nil {
			panic(fmt.Errorf("mark %s flag: %w", name, err))
		}
	}
}

// GetConfigPath returns the configuration path from the flags, or the
// default location.
func (ra *RootArgs) GetConfigPath() string {
	if ra.ConfigPath != "" {
		return ra.ConfigPath
	}

	return configs.GetPath()
}

// GetPreferencesPath returns the preferences path from the flags, or the
// default location.
func (ra *RootArgs) GetPreferencesPath() string {
	if ra.PreferencesPath != "" {
		return ra.PreferencesPath
	}

	return preferences.GetPath()
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	runArgs := NewRunArgs(args)

	runCmd := NewRunCmd(runArgs)
	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		Args:              cobra.NoArgs,
		RunE:              runCmd.RunE,
	}

	args.AddFlags(cmd)
	runArgs.AddFlags(cmd)
	cmd.AddCommand(
		runCmd,
		NewMatchCmd(),
		NewPrefsCmd(args),
		NewConfigCmd(args),
		NewReportCmd(args),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return nil
	}
}
