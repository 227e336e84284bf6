package cli

import (
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to the environment variable name of every flag.
var envPrefix = strings.ToUpper(cmdName) + "_"

// Flags that never come from the environment.
var unboundFlags = []string{"help", "version"}

// bindEnvVars binds the flags of cmd and all of its subcommands to
// environment variables named CHIPPER_<FLAG_NAME>, where the flag name is
// upper-cased and dashes become underscores:
//
//   - "log-level" is read from CHIPPER_LOG_LEVEL
//   - "serve-mcp" is read from CHIPPER_SERVE_MCP
//
// Arguments take precedence over environment variables, which take
// precedence over default values. A flag set from the environment counts
// as changed, so commands treat it exactly like an argument.
//
// Each flag's usage is extended with its variable name, so that it shows in
// help output.
func bindEnvVars(cmd *cobra.Command) {
	for _, flags := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
		flags.VisitAll(bindFlagToEnv)
	}

	for _, sub := range cmd.Commands() {
		bindEnvVars(sub)
	}
}

func bindFlagToEnv(flag *pflag.Flag) {
	if slices.Contains(unboundFlags, flag.Name) {
		return
	}

	envName := flagToEnvName(flag.Name)

	suffix := " ($" + envName + ")"
	if !strings.HasSuffix(flag.Usage, suffix) {
		flag.Usage += suffix
	}

	if flag.Changed {
		return
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok || envValue == "" {
		return
	}

	err := flag.Value.Set(envValue)
	if err != nil {
		// Keep the default rather than failing every command.
		slog.Warn("ignore environment variable",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("error", err),
		)

		return
	}

	flag.Changed = true
}

// flagToEnvName converts a flag name to its environment variable name.
func flagToEnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
