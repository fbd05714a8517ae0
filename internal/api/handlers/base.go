package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/AlanFontoura/myscripts/internal/api/dto"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// maxBodyBytes bounds request bodies; chart-table responses can be large.
const maxBodyBytes = 32 << 20

var validate = validator.New()

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// DecodeJSON reads a bounded JSON body into v and validates it.
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, v any) (dto.APIError, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return dto.BadRequestError("invalid JSON body: " + err.Error()), false
	}
	if err := validate.Struct(v); err != nil {
		return dto.FieldValidationError(err), false
	}
	return dto.APIError{}, true
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
