package dto

import "encoding/json"

// RunListParams represents query parameters for listing runs.
type RunListParams struct {
	Tool   string `json:"tool"`
	Status string `json:"status" validate:"omitempty,oneof=running completed failed"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{
		Limit: 50,
	}
}

// FlattenRequest is the body of a chart-table flatten call. RequestData is
// the payload the chart table was calculated from; Extra adds constant
// columns to every row.
type FlattenRequest struct {
	Response    json.RawMessage `json:"response" validate:"required"`
	RequestData json.RawMessage `json:"request_data"`
	Extra       map[string]any  `json:"extra"`
}
