package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AlanFontoura/myscripts/internal/api/dto"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// RunsHandler handles run history HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns runs newest first.
// Query: tool, status, limit, offset.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultRunListParams()
	q := r.URL.Query()
	params.Tool = q.Get("tool")
	params.Status = q.Get("status")
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	params.Offset = ParseIntParam(r, "offset", params.Offset)
	if err := validate.Struct(params); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.FieldValidationError(err))
		return
	}

	result, err := h.repo.ListRuns(storage.RunFilters{
		Tool:   params.Tool,
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:       make([]dto.RunResponse, 0, len(result.Runs)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, run := range result.Runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}
	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// Artifacts handles GET /api/runs/{id}/artifacts - returns the files a run wrote.
func (h *RunsHandler) Artifacts(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	artifacts, err := h.repo.ListArtifacts(run.ID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ArtifactListResponse{
		RunID:     run.ID,
		Artifacts: make([]dto.ArtifactResponse, 0, len(artifacts)),
		Count:     len(artifacts),
	}
	for _, a := range artifacts {
		response.Artifacts = append(response.Artifacts, dto.ArtifactResponse{
			Kind:      a.Kind,
			Path:      a.Path,
			Rows:      a.Rows,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		})
	}
	h.WriteJSON(w, http.StatusOK, response)
}

// lookup loads the run named by the {id} URL parameter, writing the error
// response when it cannot.
func (h *RunsHandler) lookup(w http.ResponseWriter, r *http.Request) (*storage.Run, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return nil, false
	}
	if _, err := uuid.Parse(id); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return nil, false
	}
	run, err := h.repo.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return nil, false
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return nil, false
	}
	return run, true
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run *storage.Run) dto.RunResponse {
	resp := dto.RunResponse{
		ID:           run.ID,
		Tool:         run.Tool,
		Profile:      run.Profile,
		Parameters:   run.Parameters,
		StartedAt:    run.StartedAt.Format(time.RFC3339),
		DurationMs:   run.DurationMs,
		Status:       run.Status,
		RowsTotal:    run.RowsTotal,
		Breaks:       run.Breaks,
		ErrorMessage: run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
