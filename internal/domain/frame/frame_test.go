package frame

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PadsAndTruncatesRows(t *testing.T) {
	f := New([]string{"a", "b"}, [][]any{{1.0}, {1.0, 2.0, 3.0}})

	require.Equal(t, 2, f.Len())
	assert.Equal(t, []any{1.0, nil}, f.Rows()[0])
	assert.Equal(t, []any{1.0, 2.0}, f.Rows()[1])
}

func TestFrame_DuplicateColumnsResolveToFirst(t *testing.T) {
	f := New([]string{"Name", "Name", "Value"}, [][]any{{"parent", "child", 1.0}})

	assert.Equal(t, 0, f.Index("Name"))
	assert.Equal(t, "parent", f.Value(0, "Name"))
	assert.Equal(t, 3, f.Width())
}

func TestInsertConstant(t *testing.T) {
	// Arrange
	f := New([]string{"Date", "Value"}, [][]any{{"2024-01-31", 1.0}, {"2024-02-29", 2.0}})

	// Act
	f.InsertConstant(1, "Account ID", "ACC-1")

	// Assert
	assert.Equal(t, []string{"Date", "Account ID", "Value"}, f.Columns())
	assert.Equal(t, []any{"2024-01-31", "ACC-1", 1.0}, f.Rows()[0])
	assert.Equal(t, []any{"2024-02-29", "ACC-1", 2.0}, f.Rows()[1])
}

func TestAddConstant(t *testing.T) {
	f := New([]string{"a"}, [][]any{{1.0}})
	f.AddConstant("source", "api")

	assert.Equal(t, []string{"a", "source"}, f.Columns())
	assert.Equal(t, "api", f.Value(0, "source"))
}

func TestSetColumn(t *testing.T) {
	f := New([]string{"a"}, [][]any{{1.0}, {2.0}})

	require.NoError(t, f.SetColumn("b", []any{"x", "y"}))
	require.NoError(t, f.SetColumn("a", []any{3.0, 4.0}))

	assert.Equal(t, []any{3.0, "x"}, f.Rows()[0])
	assert.Equal(t, []any{4.0, "y"}, f.Rows()[1])
	assert.Error(t, f.SetColumn("c", []any{1.0}))
}

func TestSelect_UnknownColumn(t *testing.T) {
	f := New([]string{"a"}, nil)

	_, err := f.Select("a", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSelectDropRename(t *testing.T) {
	f := New([]string{"a", "b", "c"}, [][]any{{1.0, 2.0, 3.0}})

	sel, err := f.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []any{3.0, 1.0}, sel.Rows()[0])

	dropped := f.Drop("b", "unknown")
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())

	renamed := f.Rename(map[string]string{"a": "A"})
	assert.Equal(t, []string{"A", "b", "c"}, renamed.Columns())
	assert.Equal(t, []string{"a", "b", "c"}, f.Columns(), "source frame is untouched")
}

func TestFilter_CopiesRows(t *testing.T) {
	f := New([]string{"a"}, [][]any{{nil}, {2.0}})

	out := f.Filter(func(r Row) bool { return r.Get("a") == nil })
	out.FillNil(0.0)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, 0.0, out.Value(0, "a"))
	assert.Nil(t, f.Value(0, "a"))
}

func TestSortBy(t *testing.T) {
	// Arrange
	f := New([]string{"id", "date"}, [][]any{
		{"B", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"A", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"A", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	// Act
	sorted := f.SortBy("id", "date")

	// Assert
	assert.Nil(t, sorted.Value(0, "id"))
	assert.Equal(t, "A", sorted.Value(1, "id"))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), sorted.Value(1, "date"))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), sorted.Value(2, "date"))
	assert.Equal(t, "B", sorted.Value(3, "id"))
}

func TestSortBy_NumbersAreNumeric(t *testing.T) {
	f := New([]string{"n"}, [][]any{{10.0}, {int64(9)}, {1.5}})

	sorted := f.SortBy("n")

	assert.Equal(t, []any{1.5, int64(9), 10.0}, sorted.Column("n"))
}

func TestDedup(t *testing.T) {
	f := New([]string{"a", "b"}, [][]any{{1.0, "x"}, {int64(1), "x"}, {2.0, "x"}})

	out := f.Dedup()

	assert.Equal(t, 2, out.Len())
}

func TestFillNil_SelectedColumns(t *testing.T) {
	f := New([]string{"a", "b"}, [][]any{{nil, nil}})

	f.FillNil(0.0, "b")

	assert.Equal(t, []any{nil, 0.0}, f.Rows()[0])
}

func TestConcat_UnionOfColumns(t *testing.T) {
	a := New([]string{"x", "y"}, [][]any{{1.0, 2.0}})
	b := New([]string{"y", "z"}, [][]any{{3.0, 4.0}})

	out := Concat(a, nil, b)

	assert.Equal(t, []string{"x", "y", "z"}, out.Columns())
	assert.Equal(t, []any{1.0, 2.0, nil}, out.Rows()[0])
	assert.Equal(t, []any{nil, 3.0, 4.0}, out.Rows()[1])
}

func TestMerge(t *testing.T) {
	left := New([]string{"Date", "ID", "MV"}, [][]any{
		{"2024-01-31", "A", 100.0},
		{"2024-01-31", "B", 50.0},
	})
	right := New([]string{"Date", "ID", "MV"}, [][]any{
		{"2024-01-31", "A", 101.0},
		{"2024-01-31", "C", 7.0},
	})

	tests := []struct {
		name string
		how  JoinType
		rows [][]any
	}{
		{
			name: "inner",
			how:  Inner,
			rows: [][]any{{"2024-01-31", "A", 100.0, 101.0}},
		},
		{
			name: "left",
			how:  Left,
			rows: [][]any{
				{"2024-01-31", "A", 100.0, 101.0},
				{"2024-01-31", "B", 50.0, nil},
			},
		},
		{
			name: "outer",
			how:  Outer,
			rows: [][]any{
				{"2024-01-31", "A", 100.0, 101.0},
				{"2024-01-31", "B", 50.0, nil},
				{"2024-01-31", "C", nil, 7.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Merge(left, right, MergeOptions{
				On:       []string{"Date", "ID"},
				How:      tt.how,
				Suffixes: [2]string{" - base", " - target"},
			})

			require.NoError(t, err)
			assert.Equal(t, []string{"Date", "ID", "MV - base", "MV - target"}, out.Columns())
			assert.Equal(t, tt.rows, out.Rows())
		})
	}
}

func TestMerge_ManyToMany(t *testing.T) {
	left := New([]string{"k", "l"}, [][]any{{"a", 1.0}, {"a", 2.0}})
	right := New([]string{"k", "r"}, [][]any{{"a", "x"}, {"a", "y"}})

	out, err := Merge(left, right, MergeOptions{On: []string{"k"}})

	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, []string{"k", "l", "r"}, out.Columns())
}

func TestMerge_MissingKey(t *testing.T) {
	left := New([]string{"k"}, nil)
	right := New([]string{"other"}, nil)

	_, err := Merge(left, right, MergeOptions{On: []string{"k"}})

	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestGroupBy(t *testing.T) {
	f := New([]string{"acct", "type"}, [][]any{
		{"A", "eq"}, {"B", "eq"}, {"A", "eq"}, {"A", "fi"},
	})

	groups, err := f.GroupBy("acct", "type")

	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []any{"A", "eq"}, groups[0].Key)
	assert.Equal(t, []int{0, 2}, groups[0].Rows)
	assert.Equal(t, []any{"A", "fi"}, groups[2].Key)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{0.0, false},
		{int64(0), false},
		{json.Number("0"), false},
		{"", false},
		{false, false},
		{1.5, true},
		{int64(-3), true},
		{"x", true},
		{true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.value), "%#v", tt.value)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "True", Format(true))
	assert.Equal(t, "0.1", Format(0.1))
	assert.Equal(t, "42", Format(int64(42)))
	assert.Equal(t, "2024-01-31", Format(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-31 10:30:00", Format(time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC)))
}

func TestKey_NumericTypesCollapse(t *testing.T) {
	assert.Equal(t, Key(1.0, "a"), Key(int64(1), "a"))
	assert.NotEqual(t, Key(nil), Key(""))
}
