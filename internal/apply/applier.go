// Package apply executes a dump against a database, sending each rewritten
// INSERT batch as its own statement.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/sqlbatch/internal/rewrite"
)

// Execer runs one SQL string. Implementations must accept several
// semicolon-separated statements in a single call.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// StatementError reports which statement failed.
type StatementError struct {
	// Index is the 0-based position of the statement among those executed.
	Index int
	// Table is set when the failing statement was an INSERT batch.
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("statement %d (insert into %q): %v", e.Index, e.Table, e.Err)
	}
	return fmt.Sprintf("statement %d: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// ErrNilExecer is returned when an Applier is built without an Execer.
var ErrNilExecer = errors.New("apply: execer cannot be nil")

// Result counts what was executed.
type Result struct {
	Statements int
	Batches    int
	Rows       int
}

// Applier is a rewrite.Emitter that executes what it receives. Passthrough
// lines are buffered and sent as one script before the next batch and at
// Close; whitespace-only scripts are skipped.
type Applier struct {
	ctx     context.Context //nolint:containedctx // Emitter methods carry no context.
	exec    Execer
	log     zerolog.Logger
	pending []string
	result  Result
}

// New returns an Applier executing through exec.
func New(ctx context.Context, exec Execer, log zerolog.Logger) (*Applier, error) {
	if exec == nil {
		return nil, ErrNilExecer
	}
	return &Applier{ctx: ctx, exec: exec, log: log}, nil
}

// EmitLine implements rewrite.Emitter.
func (a *Applier) EmitLine(line string) error {
	a.pending = append(a.pending, line)
	return nil
}

// EmitBatch implements rewrite.Emitter.
func (a *Applier) EmitBatch(b rewrite.Batch) error {
	if err := a.flushPending(); err != nil {
		return err
	}
	if err := a.run(b.Statement(), b.Table); err != nil {
		return err
	}
	a.result.Batches++
	a.result.Rows += len(b.Rows)
	return nil
}

// Close executes any buffered passthrough lines.
func (a *Applier) Close() error {
	return a.flushPending()
}

// Result returns the counts so far.
func (a *Applier) Result() Result {
	return a.result
}

func (a *Applier) flushPending() error {
	script := strings.Join(a.pending, "\n")
	a.pending = nil
	if strings.TrimSpace(script) == "" {
		return nil
	}
	return a.run(script, "")
}

func (a *Applier) run(sql, table string) error {
	idx := a.result.Statements
	if err := a.exec.Exec(a.ctx, sql); err != nil {
		return &StatementError{Index: idx, Table: table, Err: err}
	}
	a.result.Statements++
	a.log.Debug().Int("statement", idx).Str("table", table).Int("bytes", len(sql)).Msg("statement executed")
	return nil
}

// Apply rewrites lines with r and executes the result through exec.
func Apply(ctx context.Context, r *rewrite.Rewriter, lines []string, exec Execer, log zerolog.Logger) (Result, error) {
	a, err := New(ctx, exec, log)
	if err != nil {
		return Result{}, err
	}
	if _, err = r.Run(ctx, lines, a); err != nil {
		return a.Result(), err
	}
	if err = a.Close(); err != nil {
		return a.Result(), err
	}
	return a.Result(), nil
}
