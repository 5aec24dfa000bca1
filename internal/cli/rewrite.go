package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/sqlbatch/internal/config"
	"github.com/rshade/sqlbatch/internal/rewrite"
)

// rewriteParams holds the resolved inputs of one rewrite run.
type rewriteParams struct {
	input     string
	output    string
	batchSize int
	verify    bool
}

// NewRewriteCmd creates the rewrite command, which splits the INSERT blocks of
// a dump into statements of bounded size.
func NewRewriteCmd() *cobra.Command {
	var (
		output    string
		batchSize int
		verify    bool
		toStdout  bool
	)

	cmd := &cobra.Command{
		Use:   "rewrite [input]",
		Short: "Split INSERT blocks into statements of at most --batch-size rows",
		Long: `Reads a SQL dump and rewrites every block of the form

  INSERT INTO "table" VALUES
  (...),
  (...)
  );

into consecutive INSERT statements holding at most --batch-size rows each.
Every statement is followed by a blank line, and a single blank line that
directly follows a rewritten block's ");" is absorbed into it, so rewriting
already batched output with the same --batch-size changes nothing. All other
lines are copied unchanged. Table names must be ASCII letters, digits or "_".
Use "-" as input to read stdin.`,
		Example: `  # Rewrite wilayah_indonesia_pg.sql into wilayah_indonesia_pg_batched.sql
  sqlbatch rewrite

  # Smaller statements, explicit output
  sqlbatch rewrite dump.sql -b 100 -o dump_100.sql

  # Pipe through and check that no row was lost
  sqlbatch rewrite - --stdout --verify < dump.sql > out.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetGlobalConfig()

			params := rewriteParams{
				input:     cfg.Rewrite.Input,
				output:    cfg.Rewrite.Output,
				batchSize: cfg.Rewrite.BatchSize,
				verify:    cfg.Rewrite.Verify || verify,
			}
			if len(args) == 1 {
				params.input = args[0]
				params.output = ""
			}
			if cmd.Flags().Changed("output") {
				params.output = output
			}
			if cmd.Flags().Changed("batch-size") {
				params.batchSize = batchSize
			}
			if toStdout {
				params.output = stdoutName
			}
			if params.output == "" {
				if params.input == stdoutName {
					params.output = stdoutName
				} else {
					params.output = config.DefaultOutputPath(params.input)
				}
			}

			return runRewrite(cmd, params)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "",
		`output file (default "<input>_batched.sql", "-" for stdout)`)
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", rewrite.DefaultBatchSize, "maximum rows per INSERT statement")
	cmd.Flags().BoolVar(&verify, "verify", false, "compare row fingerprints of input and output")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write the rewritten dump to stdout")

	return cmd
}

// runRewrite reads the input, streams the rewritten dump to its destination
// and prints the summary.
func runRewrite(cmd *cobra.Command, p rewriteParams) error {
	ctx := cmd.Context()

	r, err := rewrite.New(p.batchSize)
	if err != nil {
		return err
	}

	lines, err := readInputLines(cmd, p.input)
	if err != nil {
		return err
	}
	logger.Debug().
		Str("input", p.input).
		Str("output", p.output).
		Int("batch_size", p.batchSize).
		Int("lines", len(lines)).
		Msg("rewriting dump")

	var (
		stats   *rewrite.Stats
		written int64
		after   *rewrite.TextEmitter
	)
	if p.verify {
		after = &rewrite.TextEmitter{}
	}

	if p.output == stdoutName {
		stats, written, err = writeRewrite(ctx, r, lines, cmd.OutOrStdout(), after)
	} else {
		stats, written, err = writeRewriteFile(ctx, r, lines, p.output, after)
	}
	if err != nil {
		return err
	}

	summary := rewriteSummary{Output: p.output, BatchSize: p.batchSize, Bytes: written, Stats: stats}
	if p.verify {
		if err = rewrite.Verify(ctx, lines, after.Lines()); err != nil {
			return &ExitError{Code: ExitCodeMismatch, Err: fmt.Errorf("verifying %s: %w", p.output, err)}
		}
		summary.Verified = true
	}

	logger.Info().
		Int("statements", stats.Statements).
		Int("rows", stats.Rows).
		Int("dropped_lines", stats.DroppedLines).
		Msg("rewrite complete")

	// The summary must not mix with SQL written to stdout.
	out := cmd.OutOrStdout()
	if p.output == stdoutName {
		out = cmd.ErrOrStderr()
	}
	return renderSummary(out, summary)
}

// readInputLines reads the dump at path, or stdin for "-", split into lines.
func readInputLines(cmd *cobra.Command, path string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == stdoutName {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input %s: %w", path, err)
	}
	return rewrite.SplitLines(string(data)), nil
}

// writeRewriteFile writes the rewritten dump to path. A partially written
// file is removed when the rewrite fails.
func writeRewriteFile(
	ctx context.Context,
	r *rewrite.Rewriter,
	lines []string,
	path string,
	tee *rewrite.TextEmitter,
) (*rewrite.Stats, int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, 0, fmt.Errorf("creating output %s: %w", path, err)
	}

	stats, written, err := writeRewrite(ctx, r, lines, f, tee)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing output %s: %w", path, closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn().Err(rmErr).Str("path", path).Msg("failed to remove partial output")
		}
		return nil, 0, err
	}
	return stats, written, nil
}

// writeRewrite streams the rewrite of lines to w, also feeding tee when set.
func writeRewrite(
	ctx context.Context,
	r *rewrite.Rewriter,
	lines []string,
	w io.Writer,
	tee *rewrite.TextEmitter,
) (*rewrite.Stats, int64, error) {
	we := rewrite.NewWriterEmitter(w)
	var em rewrite.Emitter = we
	if tee != nil {
		em = rewrite.Tee(we, tee)
	}

	stats, err := r.Run(ctx, lines, em)
	if err != nil {
		return nil, 0, err
	}
	if err = we.Flush(); err != nil {
		return nil, 0, fmt.Errorf("writing output: %w", err)
	}
	return stats, we.BytesWritten(), nil
}
