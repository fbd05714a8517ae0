package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanFontoura/myscripts/internal/api/dto"
	"github.com/AlanFontoura/myscripts/internal/api/handlers"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func TestRunsHandler_List(t *testing.T) {
	t.Run("returns empty list when no runs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Empty(t, response.Runs)
		assert.Equal(t, 0, response.TotalCount)
		assert.Equal(t, 50, response.Limit)
	})

	t.Run("filters by tool and status", func(t *testing.T) {
		repo := storage.NewMockRepository()

		run1, _ := repo.StartRun("positions", "gresham", nil)
		_ = repo.CompleteRun(run1.ID, 120, 4)
		run2, _ := repo.StartRun("positions", "gresham", nil)
		_ = repo.FailRun(run2.ID, errors.New("no position file"))
		_, _ = repo.StartRun("navhistory", "prod", nil)

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?tool=positions&status=completed", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Runs, 1)
		assert.Equal(t, run1.ID, response.Runs[0].ID)
		assert.Equal(t, 120, response.Runs[0].RowsTotal)
		assert.Equal(t, 4, response.Runs[0].Breaks)
		assert.NotEmpty(t, response.Runs[0].CompletedAt)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMockRepository()

		for i := 0; i < 5; i++ {
			run, _ := repo.StartRun("regression", "", nil)
			_ = repo.CompleteRun(run.ID, 10, 0)
		}

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=3", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Len(t, response.Runs, 3)
		assert.Equal(t, 5, response.TotalCount)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		handler := handlers.NewRunsHandler(storage.NewMockRepository())

		req := httptest.NewRequest(http.MethodGet, "/api/runs?status=lost", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var response dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, dto.ErrCodeValidation, response.Code)
		assert.Contains(t, response.Message, "status")
	})

	t.Run("returns 500 when storage fails", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.ListRunsErr = errors.New("database is locked")
		handler := handlers.NewRunsHandler(repo)

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRunsHandler_Get(t *testing.T) {
	t.Run("returns run by ID", func(t *testing.T) {
		repo := storage.NewMockRepository()
		run, _ := repo.StartRun("valuesrecon", "oa", map[string]string{"base_env": "prod"})
		_ = repo.CompleteRun(run.ID, 10, 2)

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", run.ID))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, run.ID, response.ID)
		assert.Equal(t, "valuesrecon", response.Tool)
		assert.Equal(t, "oa", response.Profile)
		assert.Equal(t, map[string]string{"base_env": "prod"}, response.Parameters)
		assert.Equal(t, 10, response.RowsTotal)
		assert.Equal(t, storage.StatusCompleted, response.Status)
	})

	t.Run("returns 404 for non-existent run", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo)
		id := uuid.NewString()

		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, dto.ErrCodeNotFound, response.Code)
	})

	t.Run("returns 400 for invalid ID", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/invalid", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "invalid"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRunsHandler_Artifacts(t *testing.T) {
	t.Run("lists the files of a run", func(t *testing.T) {
		repo := storage.NewMockRepository()
		run, _ := repo.StartRun("positions", "gresham", nil)
		require.NoError(t, repo.AddArtifact(&storage.Artifact{RunID: run.ID, Kind: "full", Path: "out/full_recon.csv", Rows: 10}))
		require.NoError(t, repo.AddArtifact(&storage.Artifact{RunID: run.ID, Kind: "cashlike", Path: "out/cashlike_recon.csv", Rows: 1}))

		handler := handlers.NewRunsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/artifacts", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", run.ID))
		rec := httptest.NewRecorder()

		handler.Artifacts(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ArtifactListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, run.ID, response.RunID)
		assert.Equal(t, 2, response.Count)
		assert.Equal(t, "out/full_recon.csv", response.Artifacts[0].Path)
		assert.Equal(t, 10, response.Artifacts[0].Rows)
	})

	t.Run("returns 404 for non-existent run", func(t *testing.T) {
		handler := handlers.NewRunsHandler(storage.NewMockRepository())
		id := uuid.NewString()

		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/artifacts", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Artifacts(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
