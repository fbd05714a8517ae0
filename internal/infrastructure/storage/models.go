package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one execution of a reconciliation tool
type Run struct {
	ID           string            `json:"id"`
	Tool         string            `json:"tool"`
	Profile      string            `json:"profile,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Status       string            `json:"status"`
	RowsTotal    int               `json:"rows_total"`
	Breaks       int               `json:"breaks"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Artifact is a file written by a run
type Artifact struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats contains aggregate run statistics
type Stats struct {
	TotalRuns      int                  `json:"total_runs"`
	CompletedRuns  int                  `json:"completed_runs"`
	FailedRuns     int                  `json:"failed_runs"`
	RunningRuns    int                  `json:"running_runs"`
	TotalBreaks    int                  `json:"total_breaks"`
	TotalArtifacts int                  `json:"total_artifacts"`
	ToolStats      map[string]ToolStats `json:"tool_stats"`
}

// ToolStats contains per-tool statistics
type ToolStats struct {
	Runs      int    `json:"runs"`
	Breaks    int    `json:"breaks"`
	LastRunAt string `json:"last_run_at"`
}

func (s *Stats) add(status string, count, breaks int) {
	s.TotalRuns += count
	s.TotalBreaks += breaks
	switch status {
	case StatusCompleted:
		s.CompletedRuns += count
	case StatusFailed:
		s.FailedRuns += count
	case StatusRunning:
		s.RunningRuns += count
	}
}
