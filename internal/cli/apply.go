package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/sqlbatch/internal/apply"
	"github.com/rshade/sqlbatch/internal/config"
	"github.com/rshade/sqlbatch/internal/logging"
	"github.com/rshade/sqlbatch/internal/rewrite"
)

// Apply command errors.
var (
	ErrNoDatabaseURL = errors.New("no database URL: pass --database-url or set DATABASE_URL")
	ErrApplyDeclined = errors.New("apply cancelled by user")
)

// applyOptions holds the resolved inputs of one apply run.
type applyOptions struct {
	path      string
	url       string
	batchSize int
	dryRun    bool
	yes       bool
}

// NewApplyCmd creates the apply command, which rewrites a dump in memory and
// executes it statement by statement.
func NewApplyCmd() *cobra.Command {
	var (
		databaseURL string
		batchSize   int
		dryRun      bool
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Execute a dump against PostgreSQL in bounded INSERT batches",
		Long: `Rewrites the dump in memory and executes it: the lines between INSERT blocks
are sent as one script, and every batch is sent as its own statement.
Execution stops at the first failing statement. No transaction is opened.
When stdin is a terminal, apply asks for confirmation first; --yes skips it.

The database URL is taken from --database-url, then DATABASE_URL (a .env file
in the working directory is read), then apply.database_url in the config.`,
		Example: `  # Load a dump into a local database
  sqlbatch apply dump.sql --database-url postgres://localhost:5432/app

  # Show what would be executed
  sqlbatch apply dump.sql --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetGlobalConfig()

			size := cfg.Rewrite.BatchSize
			if cmd.Flags().Changed("batch-size") {
				size = batchSize
			}
			url := cfg.Apply.DatabaseURL
			if databaseURL != "" {
				url = databaseURL
			}

			return runApply(cmd, applyOptions{
				path:      args[0],
				url:       url,
				batchSize: size,
				dryRun:    dryRun,
				yes:       yes,
			})
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", rewrite.DefaultBatchSize, "maximum rows per INSERT statement")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print statements instead of executing them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runApply(cmd *cobra.Command, opts applyOptions) error {
	ctx := cmd.Context()
	path := opts.path

	r, err := rewrite.New(opts.batchSize)
	if err != nil {
		return err
	}
	lines, err := readInputLines(cmd, path)
	if err != nil {
		return err
	}

	var exec apply.Execer
	if opts.dryRun {
		exec = apply.PrintExecer{W: cmd.OutOrStdout()}
	} else {
		if opts.url == "" {
			return ErrNoDatabaseURL
		}
		pg, connErr := apply.Connect(ctx, opts.url)
		if connErr != nil {
			return connErr
		}
		defer func() {
			if closeErr := pg.Close(ctx); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("closing database connection")
			}
		}()

		if !opts.yes && isReaderTerminal(cmd.InOrStdin()) {
			answer := Confirm(cmd.ErrOrStderr(), cmd.InOrStdin(),
				fmt.Sprintf("Execute %s against %s?", path, pg.Target()))
			if !answer.Accepted {
				return ErrApplyDeclined
			}
		}
		exec = pg
	}

	log := logging.ComponentLogger(*logging.FromContext(ctx), "apply")
	result, err := apply.Apply(ctx, r, lines, exec, log)
	if err != nil {
		return fmt.Errorf("applying %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		out = cmd.ErrOrStderr()
	}
	p := message.NewPrinter(language.English)
	_, err = p.Fprintf(out, "Applied %s: %d statements (%d INSERT batches, %d rows)\n",
		path, result.Statements, result.Batches, result.Rows)
	return err
}
