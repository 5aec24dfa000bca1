package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/sqlbatch/internal/config"
	"github.com/rshade/sqlbatch/internal/logging"
)

// annotationConfigOptional marks commands that must still run when the
// config file cannot be loaded, such as "config init --force".
const annotationConfigOptional = "sqlbatch/config-optional"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Set once per invocation by setupLogging.

// NewRootCmd creates the root Cobra command for the sqlbatch CLI.
// It loads configuration, sets up logging, and registers the subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "sqlbatch",
		Short: "Split bulk INSERT statements in SQL dumps into bounded batches",
		Long: `sqlbatch rewrites SQL dump files so that every multi-row INSERT statement
holds at most a fixed number of rows, for databases and hosted SQL consoles that
limit statement size. Row order and row text are preserved exactly.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A .env next to the dump may carry DATABASE_URL and SQLBATCH_* settings.
			_ = godotenv.Load()

			if err := loadConfig(cmd, configPath); err != nil {
				return err
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default $SQLBATCH_HOME/config.yaml or ~/.sqlbatch/config.yaml)")
	cmd.AddCommand(NewRewriteCmd(), NewVerifyCmd(), NewApplyCmd(), newConfigCmd())

	return cmd
}

// loadConfig resolves the configuration for this invocation and installs it
// as the global config.
func loadConfig(cmd *cobra.Command, configPath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	cfg, err := config.LoadForCLI(cmd.Context(), configPath, cwd)
	if err != nil {
		if cmd.Annotations[annotationConfigOptional] != "true" {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cmd.PrintErrf("Warning: %v; using defaults\n", err)
		cfg = config.Default()
		if configPath != "" {
			cfg.SetConfigPath(configPath)
		} else if path, pathErr := config.DefaultConfigPath(); pathErr == nil {
			cfg.SetConfigPath(path)
		}
	}

	config.SetGlobalConfig(cfg)
	return nil
}

const rootCmdExample = `  # Split wilayah_indonesia_pg.sql into 500-row statements
  sqlbatch rewrite

  # Choose input, output and batch size
  sqlbatch rewrite dump.sql -o dump_small.sql --batch-size 200

  # Rewrite from stdin to stdout and check that no row was lost
  cat dump.sql | sqlbatch rewrite - --stdout --verify > out.sql

  # Compare an original dump with a rewritten one
  sqlbatch verify dump.sql dump_batched.sql

  # Load a dump into PostgreSQL one batch at a time
  sqlbatch apply dump.sql --database-url postgres://localhost/app

  # Create and check the configuration file
  sqlbatch config init
  sqlbatch config validate`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}
