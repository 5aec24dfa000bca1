package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/sqlbatch/internal/config"
)

// NewConfigInitCmd creates the config init command, which writes the default
// configuration to the global config file or the --config path.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at
$SQLBATCH_HOME/config.yaml (default ~/.sqlbatch/config.yaml), or at the path
given with --config.`,
		Example: `  # Create the global configuration
  sqlbatch config init

  # Replace an existing configuration
  sqlbatch config init --force`,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	path := config.GetGlobalConfig().ConfigPath()
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	// Check if config already exists and force isn't set
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", path, err)
		}
	}

	// Defaults only: values from the environment, such as DATABASE_URL, stay out of the file.
	cfg := config.Default()
	cfg.SetConfigPath(path)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", path)
	return nil
}
