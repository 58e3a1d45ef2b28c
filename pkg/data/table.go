package data

import (
	"errors"
	"fmt"
	"strings"
)

// Table is a raw, untyped dataset: a header and string cells in source order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable validates that every row has one cell per column.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, errors.New("table has no columns")
	}

	seen := make(map[string]bool, len(columns))
	cols := make([]string, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column: %s", c)
		}
		seen[c] = true
		cols[i] = c
	}

	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(r), len(cols))
		}
	}

	return &Table{Columns: cols, Rows: rows}, nil
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Contains checks for val in list
func Contains[T comparable](list []T, val T) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
