package positions

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// Column names of the reconciliation.
const (
	Date         = "Date"
	AccountID    = "Account ID"
	SecurityID   = "Security ID"
	SecurityName = "Security Name"
	Symbol       = "Symbol"
	SecurityType = "Security Type"
	Category     = "Category"
	Scale        = "Scale"

	Units       = "Units"
	Price       = "Price"
	MarketValue = "Market Value"

	usdID = "USD"
)

// Metrics are reconciled in this order.
var Metrics = []string{Units, Price, MarketValue}

// Opener opens files by URI (s3:// or local path).
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// DatedPath substitutes the YYYYMMDD placeholder of a file pattern with date
// (YYYY-MM-DD).
func DatedPath(pattern, date string) string {
	return strings.ReplaceAll(pattern, "YYYYMMDD", strings.ReplaceAll(date, "-", ""))
}

func readCSV(ctx context.Context, o Opener, uri string, columns ...string) (*frame.Frame, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}
	defer rc.Close()
	return tabular.ReadCSVFrom(uri, rc, columns...)
}

// Tracking prepares a d1g1t tracking export (date, account, instrument,
// scale, units, price, mv, is_dead). Cash rows carry their balance in units,
// so their market value is set to units. Dead positions, sub-accounts (ids
// with "_") and rows without units and market value are dropped.
func Tracking(raw *frame.Frame) (*frame.Frame, error) {
	src, err := raw.Select("date", "account", "instrument", "scale", "units", "price", "mv", "is_dead")
	if err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	out := frame.Empty(Date, AccountID, SecurityID, Scale, Units, Price, MarketValue)
	for _, row := range src.Rows() {
		date, account, instrument, scale, units, price, mv, dead := row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7]
		if frame.Format(instrument) == usdID {
			mv = units
		}
		if d := frame.Format(dead); d != "f" && d != "False" {
			continue
		}
		if strings.Contains(frame.Format(account), "_") {
			continue
		}
		if missing(units) && missing(mv) {
			continue
		}
		out.Append([]any{date, account, instrument, scale, units, price, mv})
	}
	return out, nil
}

// Positions prepares a custodian position file (Date, AccountCode,
// SecurityID, Current, Price, MV_Local). Lots of the same security and price
// are summed, a missing price counts as 0 and the custodian's cash security
// becomes USD.
func Positions(raw *frame.Frame, usdSecurity string) (*frame.Frame, error) {
	src, err := raw.Select("Date", "AccountCode", "SecurityID", "Current", "Price", "MV_Local")
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	lots := frame.Empty(Date, AccountID, SecurityID, Price, Units, MarketValue)
	for _, row := range src.Rows() {
		if row[1] == nil || row[2] == nil {
			continue
		}
		price := row[4]
		if missing(price) {
			price = 0.0
		}
		lots.Append([]any{row[0], row[1], row[2], price, row[3], row[5]})
	}

	groups, err := lots.GroupBy(Date, AccountID, SecurityID, Price)
	if err != nil {
		return nil, err
	}
	out := frame.Empty(Date, AccountID, SecurityID, Units, Price, MarketValue)
	for _, g := range groups {
		var units, mv float64
		for _, i := range g.Rows {
			units += number(lots.Value(i, Units))
			mv += number(lots.Value(i, MarketValue))
		}
		security := g.Key[2]
		if usdSecurity != "" && frame.Format(security) == usdSecurity {
			security = usdID
		}
		out.Append([]any{g.Key[0], g.Key[1], security, units, g.Key[3], mv})
	}
	return out, nil
}

// Securities prepares a custodian security master (SecurityID, SecurityName,
// Symbol, SecurityTypeCode).
func Securities(raw *frame.Frame) (*frame.Frame, error) {
	src, err := raw.Select("SecurityID", "SecurityName", "Symbol", "SecurityTypeCode")
	if err != nil {
		return nil, fmt.Errorf("security master: %w", err)
	}
	return src.Rename(map[string]string{
		"SecurityID":       SecurityID,
		"SecurityName":     SecurityName,
		"SecurityTypeCode": SecurityType,
	}), nil
}

// Clean drops duplicate rows and rows without any value.
func Clean(f *frame.Frame) *frame.Frame {
	return f.Dedup().Filter(func(r frame.Row) bool {
		for _, v := range r.Values() {
			if !missing(v) {
				return true
			}
		}
		return false
	})
}

func missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || strings.EqualFold(x, "nan")
	case float64:
		return math.IsNaN(x)
	}
	return false
}

func number(v any) float64 {
	if f, ok := frame.ToFloat(v); ok && !math.IsNaN(f) {
		return f
	}
	return 0
}
