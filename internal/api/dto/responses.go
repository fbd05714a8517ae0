package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// RunResponse represents a tool run in API responses.
type RunResponse struct {
	ID           string            `json:"id"`
	Tool         string            `json:"tool"`
	Profile      string            `json:"profile,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	StartedAt    string            `json:"started_at"`
	CompletedAt  string            `json:"completed_at,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Status       string            `json:"status"`
	RowsTotal    int               `json:"rows_total"`
	Breaks       int               `json:"breaks"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

// ArtifactResponse represents a file written by a run.
type ArtifactResponse struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	CreatedAt string `json:"created_at"`
}

// ArtifactListResponse is returned when listing the artifacts of a run.
type ArtifactListResponse struct {
	RunID     string             `json:"run_id"`
	Artifacts []ArtifactResponse `json:"artifacts"`
	Count     int                `json:"count"`
}

// ToolStatsResponse holds the statistics of one tool.
type ToolStatsResponse struct {
	Tool      string `json:"tool"`
	Runs      int    `json:"runs"`
	Breaks    int    `json:"breaks"`
	LastRunAt string `json:"last_run_at,omitempty"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalRuns      int                 `json:"total_runs"`
	CompletedRuns  int                 `json:"completed_runs"`
	FailedRuns     int                 `json:"failed_runs"`
	RunningRuns    int                 `json:"running_runs"`
	TotalBreaks    int                 `json:"total_breaks"`
	TotalArtifacts int                 `json:"total_artifacts"`
	Tools          []ToolStatsResponse `json:"tools"`
}

// TableResponse is a flattened chart table. Column names may repeat, so
// rows are positional.
type TableResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
