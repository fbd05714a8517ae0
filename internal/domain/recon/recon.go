// Package recon compares a base and a target dataset metric by metric.
//
// A comparison joins both sides on key columns and, for each metric m,
// produces the columns "m - <base label>", "m - <target label>", "m - Diff"
// and "m - Reconciled".
package recon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// DefaultTolerance is used when a CompareSpec sets no tolerance.
const DefaultTolerance = 0.01

const (
	diffSuffix       = " - Diff"
	reconciledSuffix = " - Reconciled"
	breaksSuffix     = " - Breaks"
)

var (
	ErrEmptyDataset  = errors.New("dataset is empty")
	ErrMissingColumn = errors.New("missing column")
)

// CompareSpec describes one comparison.
type CompareSpec struct {
	Keys []string
	// Metrics defaults to every non-key column of the base frame.
	Metrics     []string
	BaseLabel   string
	TargetLabel string

	Tolerance  float64
	Tolerances map[string]float64
	// Inclusive accepts |diff| == tolerance as reconciled.
	Inclusive bool
	// Absolute stores |target - base| instead of the signed difference.
	Absolute bool
	// Round rounds the difference half away from zero to this many places when > 0.
	Round int32
}

// ToleranceFor returns the tolerance applied to metric m.
func (s CompareSpec) ToleranceFor(m string) float64 {
	if t, ok := s.Tolerances[m]; ok {
		return t
	}
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return DefaultTolerance
}

func (s CompareSpec) validate() error {
	if len(s.Keys) == 0 {
		return fmt.Errorf("compare: no key columns")
	}
	if s.BaseLabel == "" || s.TargetLabel == "" {
		return fmt.Errorf("compare: base and target labels are required")
	}
	if s.BaseLabel == s.TargetLabel {
		return fmt.Errorf("compare: base and target labels must differ, both are %q", s.BaseLabel)
	}
	return nil
}

// Column names produced for a metric.
func BaseColumn(m string, s CompareSpec) string   { return m + " - " + s.BaseLabel }
func TargetColumn(m string, s CompareSpec) string { return m + " - " + s.TargetLabel }
func DiffColumn(m string) string                  { return m + diffSuffix }
func ReconciledColumn(m string) string            { return m + reconciledSuffix }
func BreaksColumn(m string) string                { return m + breaksSuffix }

// Compare outer-joins base and target on the key columns, fills missing metric
// values with 0 and flags each metric difference against its tolerance. Rows
// come back sorted by the keys.
func Compare(base, target *frame.Frame, spec CompareSpec) (*frame.Frame, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if base == nil || base.Len() == 0 {
		return nil, fmt.Errorf("%w: base", ErrEmptyDataset)
	}
	if target == nil || target.Len() == 0 {
		return nil, fmt.Errorf("%w: target", ErrEmptyDataset)
	}

	metrics := spec.Metrics
	if len(metrics) == 0 {
		metrics = nonKeyColumns(base, spec.Keys)
	}

	left, err := side(base, spec.Keys, metrics, spec.BaseLabel)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	right, err := side(target, spec.Keys, metrics, spec.TargetLabel)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	merged, err := frame.Merge(left, right, frame.MergeOptions{On: spec.Keys, How: frame.Outer})
	if err != nil {
		return nil, err
	}

	columns := append([]string(nil), spec.Keys...)
	for _, m := range metrics {
		columns = append(columns, BaseColumn(m, spec), TargetColumn(m, spec), DiffColumn(m), ReconciledColumn(m))
	}

	out := frame.Empty(columns...)
	for i := 0; i < merged.Len(); i++ {
		row := merged.Row(i)
		values := make([]any, 0, len(columns))
		for _, k := range spec.Keys {
			values = append(values, row.Get(k))
		}
		for _, m := range metrics {
			b := number(row.Get(BaseColumn(m, spec)))
			t := number(row.Get(TargetColumn(m, spec)))
			diff := Difference(b, t, spec.Absolute, spec.Round)
			values = append(values,
				b.InexactFloat64(),
				t.InexactFloat64(),
				diff.InexactFloat64(),
				WithinTolerance(diff, spec.ToleranceFor(m), spec.Inclusive),
			)
		}
		out.Append(values)
	}
	return out.SortBy(spec.Keys...), nil
}

// Difference returns target - base, optionally absolute and rounded.
func Difference(base, target decimal.Decimal, absolute bool, places int32) decimal.Decimal {
	d := target.Sub(base)
	if absolute {
		d = d.Abs()
	}
	if places > 0 {
		d = d.Round(places)
	}
	return d
}

// WithinTolerance reports whether |diff| is below tolerance, or equal to it
// when inclusive.
func WithinTolerance(diff decimal.Decimal, tolerance float64, inclusive bool) bool {
	c := diff.Abs().Cmp(decimal.NewFromFloat(tolerance))
	if inclusive {
		return c <= 0
	}
	return c < 0
}

func side(f *frame.Frame, keys, metrics []string, label string) (*frame.Frame, error) {
	cols := append(append([]string(nil), keys...), metrics...)
	for _, c := range cols {
		if !f.Has(c) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	sel, err := f.Select(cols...)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(metrics))
	for _, m := range metrics {
		names[m] = m + " - " + label
	}
	return sel.Rename(names), nil
}

func nonKeyColumns(f *frame.Frame, keys []string) []string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var out []string
	for _, c := range f.Columns() {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}

func number(v any) decimal.Decimal {
	if f, ok := frame.ToFloat(v); ok {
		return decimal.NewFromFloat(f)
	}
	if s, ok := v.(string); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// ReconciledColumns lists the "* - Reconciled" columns of a comparison.
func ReconciledColumns(f *frame.Frame) []string {
	var out []string
	for _, c := range f.Columns() {
		if strings.HasSuffix(c, reconciledSuffix) {
			out = append(out, c)
		}
	}
	return out
}

// Metrics lists the metric names of a comparison in column order.
func Metrics(f *frame.Frame) []string {
	cols := ReconciledColumns(f)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.TrimSuffix(c, reconciledSuffix)
	}
	return out
}

// IsBreak reports whether any reconciled flag of the row is false.
func IsBreak(r frame.Row, reconciled []string) bool {
	for _, c := range reconciled {
		if ok, isBool := r.Get(c).(bool); isBool && !ok {
			return true
		}
	}
	return false
}

// Breaks keeps the rows with at least one unreconciled metric.
func Breaks(f *frame.Frame) *frame.Frame {
	cols := ReconciledColumns(f)
	return f.Filter(func(r frame.Row) bool { return IsBreak(r, cols) })
}

// AllReconciled reports whether no row of f is a break.
func AllReconciled(f *frame.Frame) bool {
	return Breaks(f).Len() == 0
}

// CountBreaks counts, per distinct value of groupBy, the rows whose metric is
// not reconciled. The result has groupBy followed by one "m - Breaks" column
// per metric.
func CountBreaks(f *frame.Frame, groupBy ...string) (*frame.Frame, error) {
	groups, err := f.GroupBy(groupBy...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingColumn, err)
	}
	metrics := Metrics(f)
	columns := append([]string(nil), groupBy...)
	for _, m := range metrics {
		columns = append(columns, BreaksColumn(m))
	}

	out := frame.Empty(columns...)
	for _, g := range groups {
		row := append([]any(nil), g.Key...)
		for _, m := range metrics {
			n := 0
			for _, i := range g.Rows {
				if ok, isBool := f.Value(i, ReconciledColumn(m)).(bool); isBool && !ok {
					n++
				}
			}
			row = append(row, float64(n))
		}
		out.Append(row)
	}
	return out.SortBy(groupBy...), nil
}
