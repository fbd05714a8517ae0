package charttable

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const customPeriodSuffix = "custom-period"

// Column is one entry of the column plan. Index is 1-based.
type Column struct {
	Index        int
	CategoryID   string
	CategoryName string
}

// MetricLabel returns the label a category id is matched against. Custom
// period metrics get their date range appended so that several instances of
// the same metric stay distinct.
func MetricLabel(m Metric) (string, error) {
	label := m.Slug
	if label == "" {
		label = m.ID
	}
	if !strings.HasSuffix(label, customPeriodSuffix) || m.DateRange == nil {
		return label, nil
	}
	if m.DateRange.StartDate == "" || m.DateRange.EndDate == "" {
		return label, nil
	}
	start, err := parseDate(m.DateRange.StartDate)
	if err != nil {
		return "", err
	}
	end, err := parseDate(m.DateRange.EndDate)
	if err != nil {
		return "", err
	}
	return label + "|" + PeriodLabel(start, end), nil
}

// PeriodLabel formats a date range as from_<start>_to_<end>.
func PeriodLabel(start, end time.Time) string {
	return fmt.Sprintf("from_%s_to_%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func parseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", ErrInvalidRequest, s, err)
	}
	return t, nil
}

// MetricOrder maps every selected metric label to its requested order.
func MetricOrder(req *RequestData) (map[string]float64, error) {
	order := map[string]float64{}
	if req == nil {
		return order, nil
	}
	for _, m := range req.Metrics.Selected {
		label, err := MetricLabel(m)
		if err != nil {
			return nil, err
		}
		order[label] = m.Order
	}
	return order, nil
}

// DataDepth returns how many levels of nested items are present: 0 without
// items, otherwise one plus the deepest child level.
func DataDepth(items []Item) int {
	if len(items) == 0 {
		return 0
	}
	deepest := 0
	for _, it := range items {
		if d := DataDepth(it.Items); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}

// BuildColumns produces the column plan. When order is non-empty, top-level
// categories whose id is a metric label move after the others, sorted by
// their order. Hidden categories contribute nothing, descendants included.
func BuildColumns(categories []Category, items []Item, order map[string]float64) []Column {
	if len(order) > 0 {
		categories = reorder(categories, order)
	}
	var columns []Column
	depth := -1
	for _, c := range categories {
		columns = appendCategory(columns, c, items, &depth)
	}
	return columns
}

func reorder(categories []Category, order map[string]float64) []Category {
	var metrics, others []Category
	for _, c := range categories {
		if _, ok := order[c.ID]; ok {
			metrics = append(metrics, c)
		} else {
			others = append(others, c)
		}
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		return order[metrics[i].ID] < order[metrics[j].ID]
	})
	return append(others, metrics...)
}

func appendCategory(columns []Column, c Category, items []Item, depth *int) []Column {
	if c.Options.Hidden {
		return columns
	}
	next := len(columns) + 1
	if c.ID == NestedCategoryID {
		if *depth < 0 {
			*depth = DataDepth(items)
		}
		for i := 0; i < *depth; i++ {
			columns = append(columns, Column{Index: next + i, CategoryID: c.ID, CategoryName: c.Name})
		}
	} else {
		columns = append(columns, Column{Index: next, CategoryID: c.ID, CategoryName: c.Name})
	}
	for _, sub := range c.Categories {
		columns = appendCategory(columns, sub, items, depth)
	}
	return columns
}

// ColumnFor finds the column a data point belongs to. Nested-marker points
// also need the column index to equal the item depth.
func ColumnFor(columns []Column, p DataPoint, depth int) (Column, bool) {
	for _, col := range columns {
		if col.CategoryID != p.CategoryID {
			continue
		}
		if p.CategoryID != NestedCategoryID || col.Index == depth {
			return col, true
		}
	}
	return Column{}, false
}
