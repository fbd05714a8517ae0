// Package summary rolls position reconciliation breaks up by account, client
// and household.
package summary

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

// Column names of summary frames.
const (
	AccountID     = "Account ID"
	AccountName   = "Account Name"
	Custodian     = "Custodian"
	ClientID      = "Client ID"
	HouseholdID   = "Household ID"
	SecurityType  = "Security Type"
	Positions     = "Positions"
	AnyBreaks     = "Any Breaks"
	AllMetrics    = "all"
	breaksPostfix = " Breaks"
)

// Options names the columns read from a reconciliation frame.
type Options struct {
	AccountColumn string
	TypeColumn    string
	// Metrics whose "<m> - Reconciled" columns are counted.
	Metrics []string
}

func (o Options) withDefaults() Options {
	if o.AccountColumn == "" {
		o.AccountColumn = AccountID
	}
	if o.TypeColumn == "" {
		o.TypeColumn = SecurityType
	}
	return o
}

// CountColumn returns the summary column for a metric selector: "" counts
// positions, AllMetrics counts rows with any break, anything else counts the
// breaks of that metric.
func CountColumn(metric string) string {
	switch metric {
	case "":
		return Positions
	case AllMetrics:
		return AnyBreaks
	}
	r := []rune(metric)
	r[0] = unicode.ToUpper(r[0])
	return string(r) + breaksPostfix
}

// SummarizeMetric counts rows per account and security type for one metric
// selector (see CountColumn). Every account is paired with every security type
// seen in f; combinations without rows count 0.
func SummarizeMetric(f *frame.Frame, metric string, opts Options) (*frame.Frame, error) {
	opts = opts.withDefaults()
	for _, c := range []string{opts.AccountColumn, opts.TypeColumn} {
		if !f.Has(c) {
			return nil, fmt.Errorf("%w: %s", recon.ErrMissingColumn, c)
		}
	}
	var flags []string
	switch metric {
	case "":
	case AllMetrics:
		for _, m := range opts.Metrics {
			flags = append(flags, recon.ReconciledColumn(m))
		}
	default:
		flags = []string{recon.ReconciledColumn(metric)}
	}
	for _, c := range flags {
		if !f.Has(c) {
			return nil, fmt.Errorf("%w: %s", recon.ErrMissingColumn, c)
		}
	}

	accounts, types := distinct(f, opts.AccountColumn), distinct(f, opts.TypeColumn)
	counts := map[string]int{}
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		if len(flags) > 0 && !recon.IsBreak(row, flags) {
			continue
		}
		counts[frame.Key(row.Get(opts.AccountColumn), row.Get(opts.TypeColumn))]++
	}

	out := frame.Empty(AccountID, SecurityType, CountColumn(metric))
	for _, a := range accounts {
		for _, t := range types {
			out.Append([]any{a, t, float64(counts[frame.Key(a, t)])})
		}
	}
	return out, nil
}

// Summarize joins the position count, one break count per metric and the
// any-break count into a single frame keyed by account and security type.
func Summarize(f *frame.Frame, opts Options) (*frame.Frame, error) {
	out, err := SummarizeMetric(f, "", opts)
	if err != nil {
		return nil, err
	}
	selectors := append(append([]string(nil), opts.Metrics...), AllMetrics)
	for _, m := range selectors {
		part, err := SummarizeMetric(f, m, opts)
		if err != nil {
			return nil, err
		}
		out, err = frame.Merge(out, part, frame.MergeOptions{On: []string{AccountID, SecurityType}, How: frame.Left})
		if err != nil {
			return nil, err
		}
	}
	out.FillNil(0.0)
	return out, nil
}

// Hierarchy builds the account to client to household frame from an account
// master (AccountCode, AccountName, CustodianName, ClientCode) and a client
// master (ClientID, HouseholdID).
func Hierarchy(accounts, clients *frame.Frame) (*frame.Frame, error) {
	acc, err := accounts.Select("AccountCode", "AccountName", "CustodianName", "ClientCode")
	if err != nil {
		return nil, fmt.Errorf("account master: %w", err)
	}
	cli, err := clients.Select("ClientID", "ClientID", "HouseholdID")
	if err != nil {
		return nil, fmt.Errorf("client master: %w", err)
	}
	cli = frame.New([]string{"ClientCode", ClientID, HouseholdID}, cli.Rows())

	merged, err := frame.Merge(acc, cli, frame.MergeOptions{On: []string{"ClientCode"}, How: frame.Left})
	if err != nil {
		return nil, err
	}
	return merged.Drop("ClientCode").Rename(map[string]string{
		"AccountCode":   AccountID,
		"AccountName":   AccountName,
		"CustodianName": Custodian,
	}), nil
}

// AttachHierarchy prefixes every summary row with its account hierarchy.
// Rows of accounts missing from the hierarchy keep nil hierarchy fields.
func AttachHierarchy(summary, hierarchy *frame.Frame) (*frame.Frame, error) {
	merged, err := frame.Merge(summary, hierarchy, frame.MergeOptions{On: []string{AccountID}, How: frame.Left})
	if err != nil {
		return nil, err
	}
	order := hierarchy.Columns()
	seen := map[string]bool{}
	for _, c := range order {
		seen[c] = true
	}
	for _, c := range merged.Columns() {
		if !seen[c] {
			order = append(order, c)
		}
	}
	return merged.Select(order...)
}

// ByAccount sums the counts per account.
func ByAccount(f *frame.Frame) (*frame.Frame, error) {
	return Rollup(f, []string{AccountID, AccountName, Custodian, ClientID, HouseholdID}, SecurityType)
}

// ByClient sums the counts per client.
func ByClient(f *frame.Frame) (*frame.Frame, error) {
	return Rollup(f, []string{ClientID, HouseholdID}, SecurityType, AccountID, AccountName, Custodian)
}

// ByHousehold sums the counts per household.
func ByHousehold(f *frame.Frame) (*frame.Frame, error) {
	return Rollup(f, []string{HouseholdID}, SecurityType, AccountID, AccountName, Custodian, ClientID)
}

// Rollup groups f by groupBy and sums every remaining column not listed in
// drop. Non-numeric cells count as 0. Groups are sorted by their keys.
func Rollup(f *frame.Frame, groupBy []string, drop ...string) (*frame.Frame, error) {
	skip := map[string]bool{}
	for _, c := range append(append([]string(nil), groupBy...), drop...) {
		skip[c] = true
	}
	var values []string
	for _, c := range f.Columns() {
		if !skip[c] {
			values = append(values, c)
		}
	}

	groups, err := f.GroupBy(groupBy...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recon.ErrMissingColumn, err)
	}
	out := frame.Empty(append(append([]string(nil), groupBy...), values...)...)
	for _, g := range groups {
		row := append([]any(nil), g.Key...)
		for _, c := range values {
			var sum float64
			for _, i := range g.Rows {
				if v, ok := frame.ToFloat(f.Value(i, c)); ok {
					sum += v
				}
			}
			row = append(row, sum)
		}
		out.Append(row)
	}
	return out.SortBy(groupBy...), nil
}

func distinct(f *frame.Frame, column string) []any {
	seen := map[string]bool{}
	var out []any
	for _, v := range f.Column(column) {
		k := frame.Key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return frame.CompareValues(out[i], out[j]) < 0 })
	return out
}
