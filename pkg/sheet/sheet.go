// Package sheet models the tabular data exchanged with the spreadsheet
// surface: a header row followed by records keyed by column name.
//
// Every table read from or written to the collaboration surface goes through
// this type, so the reconciler and scorer never deal with raw cell grids.
package sheet

import (
	"slices"
	"strconv"
	"strings"
)

// Names of the sheets the dispatcher reads and writes.
const (
	Victims        = "Victims"
	Suspects       = "Suspects"
	Police         = "Police"
	ClosedVictims  = "Closed_Vic"
	ClosedSuspects = "Closed_Sus"
	ClosedPolice   = "Closed_Pol"
	Arrests        = "Arrests"
	Parameters     = "Parameters"
)

// Record is a single row keyed by column name. A missing key reads as "".
type Record map[string]string

// Get returns the value stored under col, or "".
func (r Record) Get(col string) string {
	return r[col]
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Named pairs a sheet name with its content.
type Named struct {
	Name  string
	Table *Table
}

// Table is an ordered set of records with an explicit header.
type Table struct {
	Header []string
	Rows   []Record

	// Raw is the cell grid the table was parsed from, nil for tables built
	// in code. Sheets addressed by position, such as Parameters, read it.
	Raw [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// FromValues builds a table from a cell grid whose first row is the header.
// Short rows are padded with "", cells beyond the header are ignored.
func FromValues(values [][]string) *Table {
	if len(values) == 0 {
		return New()
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := New(header...)
	t.Raw = values
	for _, row := range values[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// Values renders the table as a cell grid, header first.
func (t *Table) Values() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, slices.Clone(t.Header))
	for _, rec := range t.Rows {
		row := make([]string, len(t.Header))
		for i, col := range t.Header {
			row[i] = rec[col]
		}
		out = append(out, row)
	}
	return out
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether col is part of the header.
func (t *Table) Has(col string) bool {
	return slices.Contains(t.Header, col)
}

// EnsureColumn appends col to the header when missing.
func (t *Table) EnsureColumn(col string) {
	if !t.Has(col) {
		t.Header = append(t.Header, col)
	}
}

// Append adds a record, extending the header with unknown columns.
func (t *Table) Append(rec Record) {
	for col := range rec {
		if !t.Has(col) {
			t.Header = append(t.Header, col)
		}
	}
	t.Rows = append(t.Rows, rec)
}

// Column returns every value of col in row order.
func (t *Table) Column(col string) []string {
	out := make([]string, len(t.Rows))
	for i, rec := range t.Rows {
		out[i] = rec[col]
	}
	return out
}

// Set returns the distinct non-empty values of col.
func (t *Table) Set(col string) map[string]struct{} {
	out := make(map[string]struct{}, len(t.Rows))
	if t == nil {
		return out
	}
	for _, rec := range t.Rows {
		if v := rec[col]; v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

// Clone deep-copies header and records.
func (t *Table) Clone() *Table {
	if t == nil {
		return New()
	}
	out := New(t.Header...)
	out.Rows = make([]Record, len(t.Rows))
	for i, rec := range t.Rows {
		out.Rows[i] = rec.Clone()
	}
	return out
}

// Filter returns a new table with the records for which keep is true.
// Records are shared, not copied.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := New(t.Header...)
	for _, rec := range t.Rows {
		if keep(rec) {
			out.Rows = append(out.Rows, rec)
		}
	}
	return out
}

// Project returns a copy restricted to header. Columns unknown to a record
// read as "".
func (t *Table) Project(header []string) *Table {
	out := New(header...)
	for _, rec := range t.Rows {
		n := make(Record, len(header))
		for _, col := range header {
			n[col] = rec[col]
		}
		out.Rows = append(out.Rows, n)
	}
	return out
}

// Rename moves column from to column to in header and every record.
func (t *Table) Rename(from, to string) {
	for i, col := range t.Header {
		if col == from {
			t.Header[i] = to
		}
	}
	for _, rec := range t.Rows {
		if v, ok := rec[from]; ok {
			delete(rec, from)
			rec[to] = v
		}
	}
}

// DedupeBy drops every record whose key was already seen, keeping the first.
func (t *Table) DedupeBy(col string) {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, rec := range t.Rows {
		k := rec[col]
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, rec)
	}
	t.Rows = kept
}

// Concat appends the records of others after t's records and returns a new
// table whose header is the union of all headers in order of appearance.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, col := range t.Header {
			out.EnsureColumn(col)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// Float parses a numeric cell, treating blanks and garbage as ok=false.
func Float(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses an integer cell. Values such as "3.0" are accepted.
func Int(s string) (int, bool) {
	f, ok := Float(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// FormatFloat renders a float the way the sheet expects: no trailing zeros.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
