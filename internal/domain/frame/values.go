package frame

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToFloat converts numeric cell values to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Truthy mirrors the loose "has a value" test used by report tooling:
// nil, zero numbers, empty strings and false are all considered empty.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case time.Time:
		return !x.IsZero()
	}
	if f, ok := ToFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// CompareValues orders two cells: nil first, then numbers numerically, then
// times chronologically, then everything else by its string form.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(Format(a), Format(b))
}

// Format renders a cell the way it is written to CSV.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Key builds a comparable join/grouping key from cell values. Numbers that are
// equal as float64 produce the same key regardless of their Go type.
func Key(values ...any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v == nil {
			b.WriteByte(0x00)
			continue
		}
		if f, ok := ToFloat(v); ok {
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
			continue
		}
		b.WriteString(Format(v))
	}
	return b.String()
}
