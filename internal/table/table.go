package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column
type Kind string

const (
	KindNumber Kind = "number"
	KindText   Kind = "text"
)

// Column describes a single named column
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is an in-memory, read-only dataset of rows and named columns.
// Cells are float64 for number columns, string for text columns and nil
// for empty cells
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"-"`

	index map[string]int
}

// New creates a table from already typed columns and rows
func New(name string, columns []Column, rows [][]any) *Table {
	t := &Table{
		Name:    name,
		Columns: columns,
		Rows:    rows,
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		t.index[col.Name] = i
	}

	return t
}

// NumRows returns the number of data rows
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in file order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the position of the named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Values returns every cell of the named column in row order
func (t *Table) Values(name string) ([]any, error) {
	i, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("unknown column %q (columns: %s)", name, strings.Join(t.ColumnNames(), ", "))
	}

	values := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values, nil
}

// Records returns the rows as column-name keyed maps
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		record := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			record[col.Name] = row[i]
		}
		records[r] = record
	}
	return records
}

// Describe renders a short schema summary with a few sample values per
// column, used to ground the agent prompt
func (t *Table) Describe(samples int) []string {
	lines := make([]string, 0, len(t.Columns))
	for i, col := range t.Columns {
		var seen []string
		for _, row := range t.Rows {
			if len(seen) >= samples {
				break
			}
			if row[i] != nil {
				seen = append(seen, FormatCell(row[i]))
			}
		}

		line := fmt.Sprintf("%s (%s)", col.Name, col.Kind)
		if len(seen) > 0 {
			line += ": e.g. " + strings.Join(seen, ", ")
		}
		lines = append(lines, line)
	}
	return lines
}

// FormatCell renders a cell the way it would appear in the source file
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}
