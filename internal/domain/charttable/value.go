package charttable

import (
	"encoding/json"
	"strings"
	"time"
)

// NormalizeValue converts a raw data point value for its column. Integers in
// a column whose id is "date" (any case) are epoch milliseconds and become UTC
// times. Decoded JSON numbers become int64 or float64. Everything else passes
// through unchanged.
func NormalizeValue(col Column, raw any) any {
	isDate := strings.EqualFold(col.CategoryID, "date")
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			if isDate {
				return time.UnixMilli(i).UTC()
			}
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return intValue(int64(v), isDate)
	case int32:
		return intValue(int64(v), isDate)
	case int64:
		return intValue(v, isDate)
	case float32:
		return float64(v)
	}
	return raw
}

func intValue(v int64, isDate bool) any {
	if isDate {
		return time.UnixMilli(v).UTC()
	}
	return v
}
