package output

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Table renders rows with box-drawing borders
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow appends a row. Missing cells are left blank and extra cells are
// dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, cell := range row {
		if n := utf8.RuneCountInString(cell); n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) String() string {
	var sb strings.Builder

	t.border(&sb, "┌", "┬", "┐")
	t.row(&sb, t.headers)
	t.border(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.row(&sb, row)
	}
	t.border(&sb, "└", "┴", "┘")

	return sb.String()
}

func (t *Table) row(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		sb.WriteString(fmt.Sprintf(" %s%s │", cell, pad(t.widths[i]-utf8.RuneCountInString(cell))))
	}
	sb.WriteString("\n")
}

func (t *Table) border(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right + "\n")
}
