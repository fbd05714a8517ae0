package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/api/dto"
	"github.com/AlanFontoura/myscripts/internal/domain/charttable"
)

// ChartTableHandler flattens chart-table responses posted by clients.
type ChartTableHandler struct {
	*Base
	logger *slog.Logger
}

// NewChartTableHandler creates a new chart-table handler.
func NewChartTableHandler(logger *slog.Logger) *ChartTableHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartTableHandler{Base: NewBase(nil), logger: logger}
}

// Flatten handles POST /api/charttable/flatten - returns the visible rows of
// the posted response as JSON, or as CSV with ?format=csv.
func (h *ChartTableHandler) Flatten(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("format must be json or csv"))
		return
	}

	var body dto.FlattenRequest
	if apiErr, ok := h.DecodeJSON(w, r, &body); !ok {
		h.WriteError(w, http.StatusBadRequest, apiErr)
		return
	}

	resp, err := charttable.DecodeResponse(bytes.NewReader(body.Response))
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
		return
	}
	req, err := charttable.DecodeRequest(bytes.NewReader(body.RequestData))
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
		return
	}

	table, err := charttable.Flatten(resp, req, staticColumns(body.Extra)...)
	if err != nil {
		status := http.StatusInternalServerError
		apiErr := dto.InternalError()
		if errors.Is(err, charttable.ErrInvalidResponse) || errors.Is(err, charttable.ErrInvalidRequest) {
			status, apiErr = http.StatusUnprocessableEntity, dto.ValidationError(err.Error())
		}
		h.WriteError(w, status, apiErr)
		return
	}
	h.logger.Debug("Flattened chart table", "rows", table.Len(), "columns", table.Width(), "format", format)

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := tabular.WriteCSV(w, table); err != nil {
			h.logger.Error("Failed to write CSV response", "error", err)
		}
		return
	}
	rows := table.Rows()
	if rows == nil {
		rows = [][]any{}
	}
	h.WriteJSON(w, http.StatusOK, dto.TableResponse{Columns: table.Columns(), Rows: rows, Count: table.Len()})
}

// staticColumns orders extra columns by name.
func staticColumns(extra map[string]any) []charttable.StaticColumn {
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]charttable.StaticColumn, len(names))
	for i, name := range names {
		out[i] = charttable.StaticColumn{Name: name, Value: extra[name]}
	}
	return out
}
