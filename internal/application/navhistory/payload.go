package navhistory

import (
	"fmt"
	"strings"
)

// CalcType is the d1g1t calculation that returns the NAV history chart table.
const CalcType = "net-asset-value-history"

// Levels lists the hierarchy levels that can be downloaded.
var Levels = []string{"accounts", "clients", "households"}

// Payload is the net-asset-value-history request body.
type Payload struct {
	Options  PayloadOptions `json:"options"`
	Control  Control        `json:"control"`
	Settings Settings       `json:"settings"`
	Groups   Selection      `json:"groups"`
	Metrics  Selection      `json:"metrics"`
}

type PayloadOptions struct {
	TimeSeries   string     `json:"time_series"`
	SingleResult bool       `json:"single_result"`
	DateRange    LabelValue `json:"date_range"`
}

type LabelValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Control struct {
	SelectedEntities map[string]any `json:"selected_entities"`
}

type Settings struct {
	Currency string      `json:"currency"`
	Date     SettingDate `json:"date"`
}

type SettingDate struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type Selection struct {
	Selected []any `json:"selected"`
}

// NewPayload builds the monthly since-inception NAV request for one entity.
func NewPayload(level, entityID, currency, date string) (Payload, error) {
	var selected map[string]any
	switch level {
	case "accounts":
		selected = map[string]any{"accounts_or_positions": [][]string{{entityID}}}
	case "clients":
		selected = map[string]any{"clients": []string{entityID}}
	case "households":
		selected = map[string]any{"households": []string{entityID}}
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	return Payload{
		Options: PayloadOptions{
			TimeSeries:   "monthly",
			SingleResult: true,
			DateRange:    LabelValue{Value: "since_inception", Label: "Since Inception"},
		},
		Control: Control{SelectedEntities: selected},
		Settings: Settings{
			Currency: currency,
			Date:     SettingDate{Date: date, Value: "specificDate"},
		},
		Groups:  Selection{Selected: []any{}},
		Metrics: Selection{Selected: []any{}},
	}, nil
}

// IDColumn returns the entity column inserted in downloaded tables,
// e.g. "Account ID" for accounts.
func IDColumn(level string) string {
	singular := strings.TrimSuffix(level, "s")
	if singular == "" {
		return "ID"
	}
	return strings.ToUpper(singular[:1]) + singular[1:] + " ID"
}
