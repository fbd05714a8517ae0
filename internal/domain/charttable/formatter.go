package charttable

import (
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// StaticColumn is a column appended to a table with the same value in every row.
type StaticColumn struct {
	Name  string
	Value any
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithHideEmptyRows overrides display_data.hide_empty_rows from the request.
func WithHideEmptyRows(hide bool) Option {
	return func(f *Formatter) {
		f.hideEmpty = hide
	}
}

// Formatter flattens one response. It is built once and read many times.
type Formatter struct {
	categories []Category
	columns    []Column
	numeric    []int
	hideEmpty  bool

	rows    [][]any
	ignored []bool
}

// NewFormatter validates the response, builds the column plan and walks the
// item tree. req may be nil.
func NewFormatter(resp *Response, req *RequestData, opts ...Option) (*Formatter, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	order, err := MetricOrder(req)
	if err != nil {
		return nil, err
	}

	f := &Formatter{
		categories: resp.Categories,
		columns:    BuildColumns(resp.Categories, resp.Items, order),
		numeric:    NumericIndexes(resp.Categories),
	}
	if req != nil {
		f.hideEmpty = req.DisplayData.HideEmptyRows
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, it := range resp.Items {
		f.walk(it, 1)
	}
	return f, nil
}

// Flatten is a shortcut for NewFormatter followed by VisibleTable.
func Flatten(resp *Response, req *RequestData, extra ...StaticColumn) (*frame.Frame, error) {
	f, err := NewFormatter(resp, req)
	if err != nil {
		return nil, err
	}
	return f.VisibleTable(extra...), nil
}

func (f *Formatter) walk(it Item, depth int) {
	values := make(map[int]any, len(it.Data))
	for _, p := range it.Data {
		col, ok := ColumnFor(f.columns, p, depth)
		if !ok {
			continue
		}
		values[col.Index] = NormalizeValue(col, p.Value)
	}

	row := make([]any, len(f.columns))
	for i, col := range f.columns {
		row[i] = values[col.Index]
	}
	f.rows = append(f.rows, row)
	f.ignored = append(f.ignored, f.IsIgnored(it))

	for _, nested := range it.Items {
		f.walk(nested, depth+1)
	}
	for _, bench := range it.Benchmarks {
		f.walk(bench, depth)
	}
}

// Columns returns the column plan.
func (f *Formatter) Columns() []Column {
	return append([]Column(nil), f.columns...)
}

// Headers returns the column display names in plan order.
func (f *Formatter) Headers() []string {
	out := make([]string, len(f.columns))
	for i, c := range f.columns {
		out[i] = c.CategoryName
	}
	return out
}

// Rows returns every constructed row in traversal order.
func (f *Formatter) Rows() [][]any {
	out := make([][]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// VisibleRows returns the rows left after dropping ignored items. It equals
// Rows when empty rows are not hidden.
func (f *Formatter) VisibleRows() [][]any {
	var out [][]any
	for i, r := range f.rows {
		if f.ignored[i] {
			continue
		}
		out = append(out, append([]any(nil), r...))
	}
	return out
}

// Table returns every row as a frame with the static columns appended.
func (f *Formatter) Table(extra ...StaticColumn) *frame.Frame {
	return f.table(f.Rows(), extra)
}

// VisibleTable is Table over VisibleRows.
func (f *Formatter) VisibleTable(extra ...StaticColumn) *frame.Frame {
	return f.table(f.VisibleRows(), extra)
}

func (f *Formatter) table(rows [][]any, extra []StaticColumn) *frame.Frame {
	t := frame.New(f.Headers(), rows)
	for _, c := range extra {
		if !t.Has(c.Name) {
			t.AddConstant(c.Name, c.Value)
			continue
		}
		values := make([]any, t.Len())
		for i := range values {
			values[i] = c.Value
		}
		_ = t.SetColumn(c.Name, values)
	}
	return t
}

// IsIgnored reports whether an item is dropped when empty rows are hidden.
func (f *Formatter) IsIgnored(it Item) bool {
	return f.hideEmpty && IsItemEmpty(it, f.numeric)
}

// NumericIndexes returns the positions of top-level categories holding
// decimal or integer values.
func NumericIndexes(categories []Category) []int {
	var idx []int
	for i, c := range categories {
		if c.IsNumeric() {
			idx = append(idx, i)
		}
	}
	return idx
}

// IsItemEmpty reports whether every numeric position of the item has no
// value. Items are never empty when there are no numeric positions. Data
// points are looked up by position; a position past the end counts as absent.
func IsItemEmpty(it Item, numeric []int) bool {
	if len(numeric) == 0 {
		return false
	}
	for _, i := range numeric {
		if i < len(it.Data) && frame.Truthy(it.Data[i].Value) {
			return false
		}
	}
	return true
}
