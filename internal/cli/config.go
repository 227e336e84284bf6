package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/chipper/api/v1beta1/configs"
)

type ConfigArgs struct {
	*RootArgs

	Write bool
	Force bool
	Show  bool
}

func (ca *ConfigArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&ca.Write, "write", false, "Write the default configuration file and exit")
	cmd.Flags().BoolVar(&ca.Force, "force", false, "With --write, back up and replace an existing file")
	cmd.Flags().BoolVar(&ca.Show, "show", false, "Print the active configuration and exit")

	cmd.MarkFlagsMutuallyExclusive("write", "show")
	cmd.MarkFlagsOneRequired("write", "show")
}

func NewConfigCmd(ra *RootArgs) *cobra.Command {
	ca := &ConfigArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or print the configuration",
		Example: `  # Create the configuration file if it does not exist:
  chipper config --write

  # Reset the configuration file, keeping a backup:
  chipper config --write --force

  # Print the configuration in effect:
  chipper config --show`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ca.Force && !ca.Write {
				return errors.New("invalid argument \"--force\": requires --write")
			}

			if ca.Write {
				path := ca.GetConfigPath()

				err := configs.WriteDefault(path, ca.Force)
				if err != nil {
					return err //nolint:wrapcheck // Already descriptive.
				}

				slog.Info("wrote configuration", slog.String("path", path))

				return nil
			}

			cfg, err := loadConfig(ca.RootArgs)
			if err != nil {
				return err
			}

			b, err := cfg.MarshalYAML()
			if err != nil {
				return fmt.Errorf("marshal config yaml: %w", err)
			}

			return writeYAML(cmd.OutOrStdout(), b)
		},
	}
	ca.AddFlags(cmd)

	return cmd
}
