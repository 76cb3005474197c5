// Package sheet is the named-table row store every service persists through.
// Tables hold loosely typed rows keyed by column name; a column listed in
// Table.Columns is present on every row, possibly with an empty value.
package sheet

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var ErrInvalidTable = errors.New("table name is required")

// Row maps column names to raw cell values.
type Row map[string]string

// Get returns the cell value or "" when the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Lookup distinguishes an absent column from a present, empty one.
func (r Row) Lookup(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is a snapshot of one named table.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func NewTable(name string, columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

func (t *Table) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Len is nil-safe so callers can range over a degraded read.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := NewTable(t.Name, t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Append adds a row, extending the header with unseen columns and filling
// missing cells with "".
func (t *Table) Append(row Row) {
	t.absorbColumns(row)
	t.Rows = append(t.Rows, t.normalize(row))
}

// Update rewrites every row the predicate accepts and returns how many matched.
func (t *Table) Update(match func(Row) bool, update func(Row) Row) int {
	updated := 0
	for i, row := range t.Rows {
		if !match(row) {
			continue
		}
		next := update(row.Clone())
		if next == nil {
			next = row
		}
		t.absorbColumns(next)
		t.Rows[i] = next
		updated++
	}
	for i := range t.Rows {
		t.Rows[i] = t.normalize(t.Rows[i])
	}
	return updated
}

// Normalize fills every header column on every row.
func (t *Table) Normalize() {
	for _, row := range t.Rows {
		t.absorbColumns(row)
	}
	for i := range t.Rows {
		t.Rows[i] = t.normalize(t.Rows[i])
	}
}

func (t *Table) absorbColumns(row Row) {
	var extra []string
	for col := range row {
		if strings.TrimSpace(col) == "" || t.HasColumn(col) {
			continue
		}
		extra = append(extra, col)
	}
	sort.Strings(extra)
	t.Columns = append(t.Columns, extra...)
}

func (t *Table) normalize(row Row) Row {
	out := make(Row, len(t.Columns))
	for _, col := range t.Columns {
		out[col] = row[col]
	}
	return out
}

// Store is the row store contract.
type Store interface {
	// ReadTable returns a snapshot; a missing table reads as empty with its default schema.
	ReadTable(ctx context.Context, name string) (*Table, error)
	AppendRow(ctx context.Context, name string, row Row) error
	// UpdateRows applies update to each row match accepts and returns the count.
	UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error)
	ReplaceTable(ctx context.Context, table *Table) error
}

// Pinger exposes the health-check surface of a store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidTable
	}
	return nil
}
