// Package table renders rows of text as an ASCII table. Cell widths ignore
// ANSI escape sequences, so colored cells stay aligned.
package table

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment controls how a cell is padded to its column width.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func displayWidth(s string) int {
	return utf8.RuneCountInString(stripAnsi(s))
}

// Table accumulates a header and rows and writes them on Render.
type Table struct {
	w               io.Writer
	header          []string
	rows            [][]string
	columnAlignment []Alignment
	headerAlignment []Alignment
}

// NewTable returns an empty table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// WithHeader sets the header row.
func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

// WithColumnAlignment sets the alignment of body cells per column.
func (t *Table) WithColumnAlignment(alignment []Alignment) *Table {
	t.columnAlignment = alignment
	return t
}

// WithHeaderAlignment sets the alignment of header cells per column.
func (t *Table) WithHeaderAlignment(alignment []Alignment) *Table {
	t.headerAlignment = alignment
	return t
}

// WithRows appends rows.
func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

// Append appends one row.
func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

// Render writes the table.
func (t *Table) Render() {
	widths := t.widths()
	var sb strings.Builder
	separator := t.separator(widths)
	sb.WriteString(separator)
	if len(t.header) > 0 {
		t.writeRow(&sb, t.header, widths, t.headerAlignment)
		sb.WriteString(separator)
	}
	for _, row := range t.rows {
		t.writeRow(&sb, row, widths, t.columnAlignment)
	}
	if len(t.rows) > 0 {
		sb.WriteString(separator)
	}
	io.WriteString(t.w, sb.String())
}

func (t *Table) widths() []int {
	var widths []int
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t *Table) separator(widths []int) string {
	var sb strings.Builder
	sb.WriteString("+")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("+")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (t *Table) writeRow(sb *strings.Builder, row []string, widths []int, alignment []Alignment) {
	sb.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		align := AlignLeft
		if i < len(alignment) {
			align = alignment[i]
		}
		sb.WriteString(" ")
		sb.WriteString(pad(cell, w, align))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

func pad(s string, width int, align Alignment) string {
	gap := width - displayWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}
