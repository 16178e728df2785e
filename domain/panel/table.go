package panel

import (
	"fmt"
	"strings"
)

// RawTable is a rectangular table of raw cell text with named columns.
// Rows are addressed by position only.
type RawTable struct {
	headers []string
	index   map[string]int
	rows    [][]string
}

// NewRawTable builds a table from a header row and data rows. Every row must
// have exactly one cell per header.
func NewRawTable(headers []string, rows [][]string) (*RawTable, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}

	copied := make([][]string, len(rows))
	for r, row := range rows {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", r+1, len(row), len(headers))
		}
		copied[r] = append([]string(nil), row...)
	}

	hs := make([]string, len(headers))
	for i, h := range headers {
		hs[i] = strings.TrimSpace(h)
	}

	return &RawTable{headers: hs, index: index, rows: copied}, nil
}

// Headers returns the column names in order
func (t *RawTable) Headers() []string {
	return append([]string(nil), t.headers...)
}

// Len returns the number of data rows
func (t *RawTable) Len() int {
	return len(t.rows)
}

// Has reports whether the table has a column with the given name
func (t *RawTable) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's cells
func (t *RawTable) Column(name string) ([]string, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[idx]
	}
	return out, nil
}

// Rows returns a deep copy of the data rows
func (t *RawTable) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = append([]string(nil), row...)
	}
	return out
}

// Clone returns an independent copy of the table
func (t *RawTable) Clone() *RawTable {
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &RawTable{headers: t.Headers(), index: index, rows: t.Rows()}
}
