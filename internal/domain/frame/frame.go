// Package frame provides a small ordered, rectangular in-memory table used to
// move report data between readers, the reconciliation logic and writers.
//
// Column names are kept in insertion order and may repeat (flattened chart
// tables emit one column per nesting level under the same display name).
// Lookups by name always resolve to the first column with that name.
package frame

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownColumn is returned when a named column does not exist.
var ErrUnknownColumn = errors.New("unknown column")

// Frame is an ordered list of named columns and fixed-width rows.
type Frame struct {
	columns []string
	rows    [][]any
}

// New creates a frame. Rows shorter than the header are padded with nil,
// longer rows are truncated.
func New(columns []string, rows [][]any) *Frame {
	f := &Frame{
		columns: append([]string(nil), columns...),
		rows:    make([][]any, 0, len(rows)),
	}
	for _, row := range rows {
		f.Append(row)
	}
	return f
}

// Empty creates a frame with the given header and no rows.
func Empty(columns ...string) *Frame {
	return New(columns, nil)
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// Rows returns the underlying rows. Callers must not mutate them.
func (f *Frame) Rows() [][]any { return f.rows }

// Row returns a named view over row i.
func (f *Frame) Row(i int) Row {
	return Row{frame: f, values: f.rows[i]}
}

// Index returns the position of the first column called name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Value returns the cell at row i in column name, or nil if the column is absent.
func (f *Frame) Value(i int, name string) any {
	idx := f.Index(name)
	if idx < 0 {
		return nil
	}
	return f.rows[i][idx]
}

// Column returns a copy of every value in the named column.
func (f *Frame) Column(name string) []any {
	idx := f.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[idx]
	}
	return out
}

// Append adds a row, padded or truncated to the frame width.
func (f *Frame) Append(row []any) {
	r := make([]any, len(f.columns))
	copy(r, row)
	f.rows = append(f.rows, r)
}

// AddConstant appends a column holding v in every row.
func (f *Frame) AddConstant(name string, v any) {
	f.InsertConstant(len(f.columns), name, v)
}

// InsertConstant inserts a column holding v in every row at position pos.
func (f *Frame) InsertConstant(pos int, name string, v any) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(f.columns) {
		pos = len(f.columns)
	}
	f.columns = insertAt(f.columns, pos, name)
	for i, row := range f.rows {
		f.rows[i] = insertAt(row, pos, v)
	}
}

// SetColumn replaces the values of an existing column, or appends a new one.
// values must have one entry per row.
func (f *Frame) SetColumn(name string, values []any) error {
	if len(values) != len(f.rows) {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(values), len(f.rows))
	}
	idx := f.Index(name)
	if idx < 0 {
		f.columns = append(f.columns, name)
		for i := range f.rows {
			f.rows[i] = append(f.rows[i], values[i])
		}
		return nil
	}
	for i := range f.rows {
		f.rows[i][idx] = values[i]
	}
	return nil
}

// Select returns a new frame with only the named columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	out := &Frame{columns: append([]string(nil), columns...), rows: make([][]any, len(f.rows))}
	for r, row := range f.rows {
		nr := make([]any, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		out.rows[r] = nr
	}
	return out, nil
}

// Drop returns a new frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(columns ...string) *Frame {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	var keep []string
	for _, c := range f.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Rename returns a new frame with columns renamed according to names.
func (f *Frame) Rename(names map[string]string) *Frame {
	out := f.clone()
	for i, c := range out.columns {
		if n, ok := names[c]; ok {
			out.columns[i] = n
		}
	}
	return out
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	out := &Frame{columns: append([]string(nil), f.columns...)}
	for _, row := range f.rows {
		if keep(Row{frame: f, values: row}) {
			out.rows = append(out.rows, append([]any(nil), row...))
		}
	}
	return out
}

// SortBy returns a new frame sorted by the named columns. The sort is stable.
func (f *Frame) SortBy(columns ...string) *Frame {
	out := f.clone()
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		if i := f.Index(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(out.rows, func(a, b int) bool {
		for _, i := range idx {
			if c := CompareValues(out.rows[a][i], out.rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

// Dedup returns a new frame without repeated rows, keeping first occurrences.
func (f *Frame) Dedup() *Frame {
	out := &Frame{columns: append([]string(nil), f.columns...)}
	seen := make(map[string]bool, len(f.rows))
	for _, row := range f.rows {
		k := Key(row...)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.rows = append(out.rows, append([]any(nil), row...))
	}
	return out
}

// FillNil replaces nil cells with v in the named columns (all columns if none given).
func (f *Frame) FillNil(v any, columns ...string) {
	var idx []int
	if len(columns) == 0 {
		for i := range f.columns {
			idx = append(idx, i)
		}
	} else {
		for _, c := range columns {
			if i := f.Index(c); i >= 0 {
				idx = append(idx, i)
			}
		}
	}
	for _, row := range f.rows {
		for _, i := range idx {
			if row[i] == nil {
				row[i] = v
			}
		}
	}
}

// Concat stacks frames vertically. The result has the union of all columns in
// first-seen order; cells for columns a frame lacks are nil.
func Concat(frames ...*Frame) *Frame {
	out := &Frame{}
	pos := map[string]int{}
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, c := range f.columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.columns)
				out.columns = append(out.columns, c)
			}
		}
	}
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, row := range f.rows {
			nr := make([]any, len(out.columns))
			for i, c := range f.columns {
				nr[pos[c]] = row[i]
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

func (f *Frame) clone() *Frame {
	out := &Frame{columns: append([]string(nil), f.columns...), rows: make([][]any, len(f.rows))}
	for i, row := range f.rows {
		out.rows[i] = append([]any(nil), row...)
	}
	return out
}

func insertAt[T any](s []T, pos int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	return s
}

// Row is a read-only view of one frame row.
type Row struct {
	frame  *Frame
	values []any
}

// Get returns the value of the named column, or nil.
func (r Row) Get(name string) any {
	idx := r.frame.Index(name)
	if idx < 0 {
		return nil
	}
	return r.values[idx]
}

// Values returns the row's cells in column order.
func (r Row) Values() []any { return r.values }
