// Package recon implements the CRM reconciliation core: key normalization,
// coverage diagnostics, the two-stage transaction-grain join, business
// filtering, plan extraction, balance enrichment, and output assembly.
package recon

import "strings"

// Row is a single record keyed by column name. A missing key and a nil
// value both mean "no data"; components treat them identically.
type Row map[string]any

// Table is a finite, in-memory record set with a declared column order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// HasColumn reports whether the table declares the column exactly.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ResolveColumn finds a declared column by name, falling back to a
// case-insensitive, whitespace-trimmed match. Export tools are sloppy about
// header casing, so "accountid " must still resolve to "AccountID".
// Returns the declared name and whether a match was found.
func (t *Table) ResolveColumn(name string) (string, bool) {
	if t.HasColumn(name) {
		return name, true
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return c, true
		}
	}
	return "", false
}

// AddColumn declares a column if it is not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row to the table.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Get returns the value for a column, nil when absent.
func (r Row) Get(col string) any {
	return r[col]
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether a cell value carries no data: nil, or a string
// that is empty after trimming.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
