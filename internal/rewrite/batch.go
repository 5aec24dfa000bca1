package rewrite

import (
	"fmt"
	"strings"
)

// StatementEnd is the line that terminates an INSERT block.
const StatementEnd = ");"

// Header returns the statement-start line for table.
func Header(table string) string {
	return fmt.Sprintf("INSERT INTO %q VALUES", table)
}

// StripSeparator removes one trailing comma, and any whitespace after it,
// from row. Rows without a trailing comma are returned unchanged.
func StripSeparator(row string) string {
	trimmed := strings.TrimRight(row, " \t\r")
	if before, ok := strings.CutSuffix(trimmed, ","); ok {
		return before
	}
	return row
}

// Batch is one emitted INSERT statement: up to batch-size consecutive rows of
// a single block.
type Batch struct {
	// Table is the identifier between the quotes of the original statement.
	Table string
	// Index is the 0-based position of this batch within its block.
	Index int
	// Rows holds the row lines as read from the input, separators included.
	Rows []string
}

// Lines renders the batch as output lines: the header, each row with the
// final row's separator removed, the terminator, and a blank line.
func (b Batch) Lines() []string {
	out := make([]string, 0, len(b.Rows)+3) //nolint:mnd // header, terminator, blank
	out = append(out, Header(b.Table))
	for i, row := range b.Rows {
		if i == len(b.Rows)-1 {
			row = StripSeparator(row)
		}
		out = append(out, row)
	}
	return append(out, StatementEnd, "")
}

// Statement renders the batch as a single SQL statement, without the
// trailing blank line.
func (b Batch) Statement() string {
	lines := b.Lines()
	return strings.Join(lines[:len(lines)-1], "\n")
}
