// Package charttable flattens d1g1t chart-table responses (a tree of
// categories plus a tree of items) into a rectangular table.
package charttable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

// NestedCategoryID is the category id that stands for the row-nesting axis.
// It expands into one column per nesting level present in the items.
const NestedCategoryID = "name"

var (
	// ErrInvalidResponse is returned when a response misses mandatory keys.
	ErrInvalidResponse = errors.New("invalid chart table response")
	// ErrInvalidRequest is returned when request data cannot be interpreted.
	ErrInvalidRequest = errors.New("invalid chart table request")
)

var validate = validator.New()

// CategoryOptions holds display flags for a category.
type CategoryOptions struct {
	Hidden bool `json:"hidden"`
}

// Category describes one output column, or a column family for NestedCategoryID.
type Category struct {
	ID         string          `json:"id" validate:"required"`
	Name       string          `json:"name"`
	ValueType  string          `json:"value_type,omitempty"`
	Options    CategoryOptions `json:"options"`
	Categories []Category      `json:"categories,omitempty" validate:"dive"`
}

// IsNumeric reports whether the category holds decimal or integer values.
func (c Category) IsNumeric() bool {
	return c.ValueType == "decimal" || c.ValueType == "integer"
}

// UnmarshalJSON rejects categories without id or name.
func (c *Category) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         *string          `json:"id"`
		Name       *string          `json:"name"`
		ValueType  string           `json:"value_type"`
		Options    *CategoryOptions `json:"options"`
		Categories []Category       `json:"categories"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return fmt.Errorf("%w: category without id", ErrInvalidResponse)
	}
	if raw.Name == nil {
		return fmt.Errorf("%w: category %q without name", ErrInvalidResponse, *raw.ID)
	}
	*c = Category{
		ID:         *raw.ID,
		Name:       *raw.Name,
		ValueType:  raw.ValueType,
		Categories: raw.Categories,
	}
	if raw.Options != nil {
		c.Options = *raw.Options
	}
	return nil
}

// DataPoint is one value of an item. Value holds a json.Number for numbers
// decoded from JSON so integers can be told apart from decimals.
type DataPoint struct {
	CategoryID string `json:"category_id" validate:"required"`
	Value      any    `json:"value"`
}

// UnmarshalJSON rejects data points without category_id.
func (p *DataPoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		CategoryID *string         `json:"category_id"`
		Value      json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.CategoryID == nil {
		return fmt.Errorf("%w: data point without category_id", ErrInvalidResponse)
	}
	p.CategoryID = *raw.CategoryID
	p.Value = nil
	if len(raw.Value) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw.Value))
	dec.UseNumber()
	return dec.Decode(&p.Value)
}

// Item is one conceptual row with its nested rows and benchmark siblings.
type Item struct {
	Data       []DataPoint `json:"data" validate:"dive"`
	Items      []Item      `json:"items,omitempty" validate:"dive"`
	Benchmarks []Item      `json:"benchmarks,omitempty" validate:"dive"`
}

// UnmarshalJSON rejects items without a data list.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data       *[]DataPoint `json:"data"`
		Items      []Item       `json:"items"`
		Benchmarks []Item       `json:"benchmarks"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Data == nil {
		return fmt.Errorf("%w: item without data", ErrInvalidResponse)
	}
	*it = Item{Data: *raw.Data, Items: raw.Items, Benchmarks: raw.Benchmarks}
	return nil
}

// Response is a chart-table API response.
type Response struct {
	Categories []Category `json:"categories" validate:"dive"`
	Items      []Item     `json:"items" validate:"dive"`
}

// UnmarshalJSON rejects responses without categories or items.
func (r *Response) UnmarshalJSON(b []byte) error {
	var raw struct {
		Categories *[]Category `json:"categories"`
		Items      *[]Item     `json:"items"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Categories == nil {
		return fmt.Errorf("%w: missing categories", ErrInvalidResponse)
	}
	if raw.Items == nil {
		return fmt.Errorf("%w: missing items", ErrInvalidResponse)
	}
	*r = Response{Categories: *raw.Categories, Items: *raw.Items}
	return nil
}

// Validate checks the required fields of every node in the response.
func (r *Response) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil response", ErrInvalidResponse)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

// DateRange bounds a custom-period metric.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Metric is one selected metric of a chart-table request.
type Metric struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	DateRange *DateRange `json:"date_range,omitempty"`
	Order     float64    `json:"order"`
}

// MetricSelection lists the metrics chosen in a request.
type MetricSelection struct {
	Selected []Metric `json:"selected"`
}

// DisplayData carries the display flags of a request.
type DisplayData struct {
	HideEmptyRows bool `json:"hide_empty_rows"`
}

// RequestData is the subset of a chart-table request payload used for flattening.
type RequestData struct {
	Metrics     MetricSelection `json:"metrics"`
	DisplayData DisplayData     `json:"display_data"`
}

// DecodeResponse reads a response, keeping integer values distinguishable.
func DecodeResponse(r io.Reader) (*Response, error) {
	var resp Response
	if err := decode(r, &resp, ErrInvalidResponse); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
		}
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeRequest reads request data. An empty body yields zero request data.
func DecodeRequest(r io.Reader) (*RequestData, error) {
	var req RequestData
	if err := decode(r, &req, ErrInvalidRequest); err != nil {
		if errors.Is(err, io.EOF) {
			return &RequestData{}, nil
		}
		return nil, err
	}
	return &req, nil
}

func decode(r io.Reader, v any, sentinel error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, sentinel) {
			return err
		}
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
