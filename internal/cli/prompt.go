package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed.
	Cancelled bool
}

// Confirm writes question followed by " [y/N] " to writer and reads one line
// from reader. The prompt defaults to "No" when the user presses Enter or
// closes the input; "y" and "yes" in any case accept.
func Confirm(writer io.Writer, reader io.Reader, question string) PromptResult {
	fmt.Fprintf(writer, "? %s [y/N] ", question)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		return PromptResult{Accepted: false}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{Accepted: false}
	}
}

// isReaderTerminal reports whether r is an interactive terminal.
func isReaderTerminal(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}
