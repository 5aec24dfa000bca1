package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/sqlbatch/internal/rewrite"
)

const stdoutName = "-"

// summaryTitleColor returns the lipgloss.Color used for the summary title.
func summaryTitleColor() lipgloss.Color { return lipgloss.Color("39") }

// summaryBorderColor returns the lipgloss.Color used for the summary border.
func summaryBorderColor() lipgloss.Color { return lipgloss.Color("240") }

// summaryWarnColor returns the lipgloss.Color used for dropped-line warnings.
func summaryWarnColor() lipgloss.Color { return lipgloss.Color("214") }

// rewriteSummary is what the rewrite command reports after a run.
type rewriteSummary struct {
	Output    string
	BatchSize int
	Bytes     int64
	Stats     *rewrite.Stats
	Verified  bool
}

// summaryRow is one label/value line of the report.
type summaryRow struct {
	label string
	value string
	warn  bool
}

func (s rewriteSummary) headline() string {
	if s.Output == stdoutName {
		return "Wrote batched SQL to stdout"
	}
	return "Created batched SQL file: " + s.Output
}

func (s rewriteSummary) rows() []summaryRow {
	p := message.NewPrinter(language.English)
	st := s.Stats
	rows := []summaryRow{
		{label: "Original lines", value: p.Sprintf("%d", st.InputLines)},
		{label: "Output lines", value: p.Sprintf("%d", st.OutputLines)},
		{label: "INSERT blocks", value: p.Sprintf("%d", st.Blocks)},
		{label: "Rows", value: p.Sprintf("%d", st.Rows)},
		{label: "Statements", value: p.Sprintf("%d (batch size %d)", st.Statements, s.BatchSize)},
		{label: "Size", value: humanize.Bytes(uint64(max(s.Bytes, 0)))},
	}
	if st.DroppedLines > 0 {
		rows = append(rows, summaryRow{
			label: "Dropped lines", value: p.Sprintf("%d", st.DroppedLines), warn: true,
		})
	}
	if st.AbandonedBlocks > 0 {
		rows = append(rows, summaryRow{
			label: "Abandoned blocks", value: p.Sprintf("%d", st.AbandonedBlocks), warn: true,
		})
	}
	if s.Verified {
		rows = append(rows, summaryRow{label: "Verified", value: "rows match"})
	}
	return rows
}

// renderSummary writes the report to w, styled when w is a terminal.
func renderSummary(w io.Writer, s rewriteSummary) error {
	if isWriterTerminal(w) {
		return renderStyledSummary(w, s)
	}
	return renderPlainSummary(w, s)
}

// renderPlainSummary writes one "Label: value" line per row.
func renderPlainSummary(w io.Writer, s rewriteSummary) error {
	var b strings.Builder
	b.WriteString(s.headline())
	b.WriteString("\n")
	for _, r := range s.rows() {
		fmt.Fprintf(&b, "%s: %s\n", r.label, r.value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// renderStyledSummary writes the report inside a rounded lipgloss box.
func renderStyledSummary(w io.Writer, s rewriteSummary) error {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(summaryTitleColor())
	labelStyle := lipgloss.NewStyle().Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(summaryWarnColor())
	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(summaryBorderColor()).
		Padding(0, 1)

	rows := s.rows()
	width := 0
	for _, r := range rows {
		width = max(width, len(r.label))
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(s.headline()))
	for _, r := range rows {
		content.WriteString("\n")
		value := r.value
		if r.warn {
			value = warnStyle.Render(value)
		}
		content.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width+1, r.label+":")))
		content.WriteString(" ")
		content.WriteString(value)
	}

	_, err := fmt.Fprintln(w, boxStyle.Render(content.String()))
	return err
}

// isWriterTerminal reports whether w is a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}
