package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/sqlbatch/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the effective configuration: the config file, the project
.sqlbatch.yaml overlay and SQLBATCH_* environment variables.

This checks:
- rewrite.batch_size is at least 1
- logging.level is a known level
- logging.format is json, console or text`,
		Example: `  # Validate current configuration
  sqlbatch config validate

  # Validate and show detailed information
  sqlbatch config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.ConfigPath())
	cmd.Printf("  Batch size: %d\n", cfg.Rewrite.BatchSize)
	cmd.Printf("  Default input: %s\n", cfg.Rewrite.Input)
	if cfg.Rewrite.Output != "" {
		cmd.Printf("  Default output: %s\n", cfg.Rewrite.Output)
	}
	cmd.Printf("  Verify after rewrite: %t\n", cfg.Rewrite.Verify)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Logging format: %s\n", cfg.Logging.Format)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	if cfg.Apply.DatabaseURL != "" {
		cmd.Println("  Database URL: set")
	} else {
		cmd.Println("  Database URL: not set")
	}
}
