package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf)
	table.WithHeader([]string{"HEADER1", "H2", "h3"})
	table.WithColumnAlignment([]Alignment{AlignLeft, AlignRight, AlignLeft})
	table.WithHeaderAlignment([]Alignment{AlignCenter, AlignCenter, AlignRight})
	table.Append([]string{"ROW1", "ROW2", "foo bar"})
	table.Append([]string{"a", "b", "c"})
	table.Render()

	expected := `
+---------+------+---------+
| HEADER1 |  H2  |      h3 |
+---------+------+---------+
| ROW1    | ROW2 | foo bar |
| a       |    b | c       |
+---------+------+---------+
`
	require.Equal(t, strings.TrimSpace(expected)+"\n", buf.String())
}

func TestColoredTable(t *testing.T) {
	var buf bytes.Buffer

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	bold.EnableColor()
	green.EnableColor()

	table := NewTable(&buf)
	table.WithHeader([]string{"HEADER1", "HEADER2", "HEADER3"})
	table.WithColumnAlignment([]Alignment{AlignLeft, AlignRight, AlignLeft})
	table.WithHeaderAlignment([]Alignment{AlignCenter, AlignCenter, AlignCenter})
	table.Append([]string{bold.Sprint("Bold text"), "12345", green.Sprint("Green text")})
	table.Append([]string{"Normal", bold.Sprint("999"), green.Sprint("More color")})
	table.Render()

	result := buf.String()
	require.Contains(t, result, "\x1b[")

	lines := strings.Split(result, "\n")
	require.GreaterOrEqual(t, len(lines), 5)

	expectedLength := len(lines[0])
	for i := 1; i < len(lines)-1; i++ {
		require.Equal(t, expectedLength, len(stripAnsi(lines[i])),
			"line %d has incorrect length after stripping ANSI codes", i)
	}
}

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf).WithHeader([]string{"A"}).Render()
	require.Equal(t, "+---+\n| A |\n+---+\n", buf.String())
}
