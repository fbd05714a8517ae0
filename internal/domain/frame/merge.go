package frame

import "fmt"

// JoinType selects which unmatched rows survive a merge.
type JoinType int

const (
	Inner JoinType = iota
	Left
	Outer
)

// MergeOptions configures Merge.
type MergeOptions struct {
	On       []string
	How      JoinType
	Suffixes [2]string
}

// Merge joins two frames on the On columns. Non-key columns present on both
// sides get Suffixes appended (default "_x" and "_y"). Matching is
// many-to-many: every left row is paired with every right row sharing its key.
// The result holds the left columns in order followed by the right non-key
// columns.
func Merge(left, right *Frame, opts MergeOptions) (*Frame, error) {
	if len(opts.On) == 0 {
		return nil, fmt.Errorf("merge: no key columns")
	}
	if opts.Suffixes == [2]string{} {
		opts.Suffixes = [2]string{"_x", "_y"}
	}

	lk, err := indexes(left, opts.On)
	if err != nil {
		return nil, fmt.Errorf("merge left: %w", err)
	}
	rk, err := indexes(right, opts.On)
	if err != nil {
		return nil, fmt.Errorf("merge right: %w", err)
	}

	isKey := make(map[string]bool, len(opts.On))
	for _, c := range opts.On {
		isKey[c] = true
	}
	leftNames := make(map[string]bool, len(left.columns))
	for _, c := range left.columns {
		leftNames[c] = true
	}
	rightNames := make(map[string]bool, len(right.columns))
	for _, c := range right.columns {
		rightNames[c] = true
	}

	var columns []string
	for _, c := range left.columns {
		if !isKey[c] && rightNames[c] {
			c += opts.Suffixes[0]
		}
		columns = append(columns, c)
	}
	var rightCols []int
	for i, c := range right.columns {
		if isKey[c] {
			continue
		}
		if leftNames[c] {
			c += opts.Suffixes[1]
		}
		columns = append(columns, c)
		rightCols = append(rightCols, i)
	}

	byKey := make(map[string][]int, len(right.rows))
	for i, row := range right.rows {
		k := Key(pick(row, rk)...)
		byKey[k] = append(byKey[k], i)
	}

	out := &Frame{columns: columns}
	matched := make([]bool, len(right.rows))
	width := len(columns)
	for _, lrow := range left.rows {
		ids := byKey[Key(pick(lrow, lk)...)]
		if len(ids) == 0 {
			if opts.How == Inner {
				continue
			}
			nr := make([]any, width)
			copy(nr, lrow)
			out.rows = append(out.rows, nr)
			continue
		}
		for _, ri := range ids {
			matched[ri] = true
			nr := make([]any, 0, width)
			nr = append(nr, lrow...)
			for _, j := range rightCols {
				nr = append(nr, right.rows[ri][j])
			}
			out.rows = append(out.rows, nr)
		}
	}

	if opts.How == Outer {
		for ri, rrow := range right.rows {
			if matched[ri] {
				continue
			}
			nr := make([]any, width)
			for n, li := range lk {
				nr[li] = rrow[rk[n]]
			}
			for n, j := range rightCols {
				nr[len(left.columns)+n] = rrow[j]
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out, nil
}

// Group is one distinct key combination and the rows that carry it.
type Group struct {
	Key  []any
	Rows []int
}

// GroupBy partitions rows by the named columns. Groups are returned in the
// order their key is first seen.
func (f *Frame) GroupBy(columns ...string) ([]Group, error) {
	idx, err := indexes(f, columns)
	if err != nil {
		return nil, err
	}
	pos := map[string]int{}
	var groups []Group
	for i, row := range f.rows {
		vals := pick(row, idx)
		k := Key(vals...)
		g, ok := pos[k]
		if !ok {
			g = len(groups)
			pos[k] = g
			groups = append(groups, Group{Key: vals})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups, nil
}

func indexes(f *Frame, columns []string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	return idx, nil
}

func pick(row []any, idx []int) []any {
	out := make([]any, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}
