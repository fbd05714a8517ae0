package handlers

import (
	"net/http"
	"sort"

	"github.com/AlanFontoura/myscripts/internal/api/dto"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate run statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Tool map to a sorted slice for easier frontend consumption
	tools := make([]dto.ToolStatsResponse, 0, len(stats.ToolStats))
	for tool, ts := range stats.ToolStats {
		tools = append(tools, dto.ToolStatsResponse{
			Tool:      tool,
			Runs:      ts.Runs,
			Breaks:    ts.Breaks,
			LastRunAt: ts.LastRunAt,
		})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Tool < tools[j].Tool })

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalRuns:      stats.TotalRuns,
		CompletedRuns:  stats.CompletedRuns,
		FailedRuns:     stats.FailedRuns,
		RunningRuns:    stats.RunningRuns,
		TotalBreaks:    stats.TotalBreaks,
		TotalArtifacts: stats.TotalArtifacts,
		Tools:          tools,
	})
}
