package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/sqlbatch/internal/config"
)

const redacted = "<redacted>"

// NewConfigShowCmd creates the config show command, which prints the
// effective configuration as YAML.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Prints the configuration sqlbatch would run with, after the config file,
the project overlay and environment variables are applied. The database URL is redacted.`,
		Example: `  sqlbatch config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *config.GetGlobalConfig()
			if cfg.Apply.DatabaseURL != "" {
				cfg.Apply.DatabaseURL = redacted
			}

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("marshalling configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			if _, err = fmt.Fprintf(out, "# %s\n", cfg.ConfigPath()); err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
