package rewrite

import (
	"bufio"
	"io"
	"strings"
)

// Emitter receives the rewriter's output in order: passthrough lines one at
// a time and each rewritten statement as a Batch.
type Emitter interface {
	EmitLine(line string) error
	EmitBatch(b Batch) error
}

// TextEmitter collects output lines in memory.
type TextEmitter struct {
	lines []string
}

// EmitLine implements Emitter.
func (e *TextEmitter) EmitLine(line string) error {
	e.lines = append(e.lines, line)
	return nil
}

// EmitBatch implements Emitter.
func (e *TextEmitter) EmitBatch(b Batch) error {
	e.lines = append(e.lines, b.Lines()...)
	return nil
}

// Lines returns the collected lines.
func (e *TextEmitter) Lines() []string {
	return e.lines
}

// String joins the collected lines with "\n".
func (e *TextEmitter) String() string {
	return strings.Join(e.lines, "\n")
}

// WriterEmitter streams output lines to an io.Writer, producing the same
// bytes as TextEmitter.String. Call Flush when done.
type WriterEmitter struct {
	w       *bufio.Writer
	started bool
	written int64
}

// NewWriterEmitter wraps w in a buffered emitter.
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: bufio.NewWriter(w)}
}

// EmitLine implements Emitter.
func (e *WriterEmitter) EmitLine(line string) error {
	if e.started {
		if err := e.w.WriteByte('\n'); err != nil {
			return err
		}
		e.written++
	}
	e.started = true
	n, err := e.w.WriteString(line)
	e.written += int64(n)
	return err
}

// EmitBatch implements Emitter.
func (e *WriterEmitter) EmitBatch(b Batch) error {
	for _, line := range b.Lines() {
		if err := e.EmitLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (e *WriterEmitter) Flush() error {
	return e.w.Flush()
}

// BytesWritten reports how many bytes have been emitted so far.
func (e *WriterEmitter) BytesWritten() int64 {
	return e.written
}

type teeEmitter []Emitter

// Tee returns an Emitter that forwards every line and batch to each of ems in
// order, stopping at the first error.
func Tee(ems ...Emitter) Emitter {
	return teeEmitter(ems)
}

func (t teeEmitter) EmitLine(line string) error {
	for _, em := range t {
		if err := em.EmitLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (t teeEmitter) EmitBatch(b Batch) error {
	for _, em := range t {
		if err := em.EmitBatch(b); err != nil {
			return err
		}
	}
	return nil
}
