package rewrite

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/sqlbatch/internal/batch"
	"github.com/rshade/sqlbatch/internal/logging"
)

// DefaultBatchSize is the number of rows per emitted statement when none is configured.
const DefaultBatchSize = batch.DefaultBatchSize

// ErrInvalidBatchSize is returned for batch sizes below 1.
var ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

// statementStart matches a statement-start line and captures the table name.
// It is anchored on both ends: trailing content means the line is not a block start.
var statementStart = regexp.MustCompile(`^INSERT INTO "(\w+)" VALUES$`)

// MatchStatementStart returns the table named by a statement-start line.
func MatchStatementStart(line string) (string, bool) {
	m := statementStart.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SplitLines splits text on "\n". A trailing newline yields a final empty
// line, so joining the result with "\n" reproduces the input.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

type mode int

const (
	modeCopy mode = iota
	modeCollect
)

// scanState is the per-run block state: current mode, table and buffered rows.
type scanState struct {
	mode  mode
	table string
	rows  []string
	// foldBlank is set after a block emitted statements: one blank line
	// directly after its terminator is replaced by the statement's own.
	foldBlank bool
}

func (s *scanState) begin(table string) {
	s.mode = modeCollect
	s.table = table
	s.rows = nil
	s.foldBlank = false
}

func (s *scanState) reset(emitted bool) {
	s.mode = modeCopy
	s.table = ""
	s.rows = nil
	s.foldBlank = emitted
}

// Rewriter splits INSERT blocks into statements of at most BatchSize rows.
// A Rewriter holds no per-run state and may be shared.
type Rewriter struct {
	batchSize int
}

// New returns a Rewriter emitting at most batchSize rows per statement.
func New(batchSize int) (*Rewriter, error) {
	if batchSize < batch.MinBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return &Rewriter{batchSize: batchSize}, nil
}

// BatchSize returns the configured rows per statement.
func (r *Rewriter) BatchSize() int {
	return r.batchSize
}

// Rewrite rewrites input with the given batch size and returns the new text.
func Rewrite(input string, batchSize int) (string, error) {
	r, err := New(batchSize)
	if err != nil {
		return "", err
	}
	out, _, err := r.RewriteString(context.Background(), input)
	return out, err
}

// RewriteString rewrites input and returns the output text with run statistics.
func (r *Rewriter) RewriteString(ctx context.Context, input string) (string, *Stats, error) {
	var em TextEmitter
	stats, err := r.Run(ctx, SplitLines(input), &em)
	if err != nil {
		return "", nil, err
	}
	return em.String(), stats, nil
}

// Run makes one pass over lines, sending passthrough lines and rewritten
// statements to em in input order.
func (r *Rewriter) Run(ctx context.Context, lines []string, em Emitter) (*Stats, error) {
	log := logging.ComponentLogger(*logging.FromContext(ctx), "rewrite")
	stats := newStats(len(lines))
	st := &scanState{}
	last := len(lines) - 1

	for i, line := range lines {
		if table, ok := MatchStatementStart(line); ok {
			if st.mode == modeCollect {
				stats.AbandonedBlocks++
				log.Debug().
					Str("table", st.table).
					Int("line", i+1).
					Int("rows_discarded", len(st.rows)).
					Msg("block interrupted by new statement start")
			}
			st.begin(table)
			continue
		}

		if st.mode == modeCopy {
			if st.foldBlank {
				st.foldBlank = false
				if line == "" {
					continue
				}
			}
			if err := em.EmitLine(line); err != nil {
				return nil, fmt.Errorf("emitting line %d: %w", i+1, err)
			}
			stats.OutputLines++
			continue
		}

		isRow := strings.HasPrefix(line, "(")
		if isRow {
			st.rows = append(st.rows, line)
		}

		if line == StatementEnd || i == last {
			if err := r.flush(ctx, log, st, em, stats); err != nil {
				return nil, err
			}
			continue
		}

		if !isRow {
			stats.DroppedLines++
			log.Debug().Str("table", st.table).Int("line", i+1).Msg("dropping stray line inside insert block")
		}
	}

	log.Debug().
		Int("input_lines", stats.InputLines).
		Int("output_lines", stats.OutputLines).
		Int("blocks", stats.Blocks).
		Int("statements", stats.Statements).
		Msg("rewrite finished")

	return stats, nil
}

// flush emits the buffered block as batches and returns the state to copy mode.
func (r *Rewriter) flush(
	ctx context.Context,
	log zerolog.Logger,
	st *scanState,
	em Emitter,
	stats *Stats,
) error {
	table := st.table
	rows := st.rows
	st.reset(len(rows) > 0)

	ts := stats.table(table)
	stats.Blocks++
	ts.Blocks++

	if len(rows) == 0 {
		return nil
	}

	proc, err := batch.NewProcessor[string](r.batchSize)
	if err != nil {
		return err
	}
	proc.WithProgressCallback(func(p *batch.Progress) {
		snap := p.Snapshot()
		log.Trace().
			Str("table", table).
			Int("batch", snap.ProcessedBatches).
			Int("of", snap.TotalBatches).
			Float64("percent", snap.PercentComplete).
			Msg("batch emitted")
		if p.IsComplete() {
			log.Debug().
				Str("table", table).
				Int("rows", snap.ProcessedItems).
				Int("statements", snap.ProcessedBatches).
				Int("batch_size", proc.GetBatchSize()).
				Dur("elapsed", snap.ElapsedTime).
				Float64("rows_per_sec", snap.ItemsPerSecond).
				Msg("block rewritten")
		}
	})

	err = proc.Process(ctx, rows, func(_ context.Context, chunk []string, idx int) error {
		b := Batch{Table: table, Index: idx, Rows: chunk}
		if emitErr := em.EmitBatch(b); emitErr != nil {
			return emitErr
		}
		stats.Rows += len(chunk)
		stats.Statements++
		stats.OutputLines += len(chunk) + 3 //nolint:mnd // header, terminator, blank
		ts.Rows += len(chunk)
		ts.Statements++
		return nil
	})
	if err != nil {
		return fmt.Errorf("rewriting block for table %q: %w", table, err)
	}
	return nil
}
