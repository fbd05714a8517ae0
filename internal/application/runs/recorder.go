// Package runs records tool runs and the files they write in the run
// history database. A nil repository turns every call into a no-op so tools
// work without a database.
package runs

import (
	"log/slog"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// Recorder starts runs against a repository.
type Recorder struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewRecorder creates a recorder. repo may be nil.
func NewRecorder(repo storage.Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Run is one recorded execution of a tool.
type Run struct {
	rec       *Recorder
	id        string
	tool      string
	artifacts int
}

// Start records a running run. Storage failures are logged and the returned
// run records nothing.
func (r *Recorder) Start(tool, profile string, params map[string]string) *Run {
	run := &Run{rec: r, tool: tool}
	if r == nil || r.repo == nil {
		return run
	}
	stored, err := r.repo.StartRun(tool, profile, params)
	if err != nil {
		r.logger.Error("Failed to record run start", "tool", tool, "error", err)
		return run
	}
	run.id = stored.ID
	r.logger.Debug("Run started", "tool", tool, "run_id", run.id)
	return run
}

// ID returns the stored run ID, or "" when nothing is recorded.
func (r *Run) ID() string { return r.id }

// Artifacts returns how many files the run wrote.
func (r *Run) Artifacts() int { return r.artifacts }

func (r *Run) logger() *slog.Logger {
	if r.rec == nil {
		return slog.Default()
	}
	return r.rec.logger
}

func (r *Run) recording() bool {
	return r != nil && r.id != "" && r.rec != nil && r.rec.repo != nil
}

// Artifact records a file written by the run.
func (r *Run) Artifact(kind, path string, rows int) {
	r.artifacts++
	if !r.recording() {
		return
	}
	err := r.rec.repo.AddArtifact(&storage.Artifact{RunID: r.id, Kind: kind, Path: path, Rows: rows})
	if err != nil {
		r.rec.logger.Error("Failed to record artifact", "run_id", r.id, "path", path, "error", err)
	}
}

// WriteCSV writes f to path and records it as an artifact of kind.
func (r *Run) WriteCSV(kind, path string, f *frame.Frame) error {
	if err := tabular.WriteCSVFile(path, f); err != nil {
		return err
	}
	r.logger().Info("Wrote file", "path", path, "rows", f.Len())
	r.Artifact(kind, path, f.Len())
	return nil
}

// WriteXLSX writes the sheets to path and records the workbook.
func (r *Run) WriteXLSX(kind, path string, sheets ...tabular.Sheet) error {
	if err := tabular.WriteXLSX(path, sheets...); err != nil {
		return err
	}
	rows := 0
	for _, s := range sheets {
		rows += s.Frame.Len()
	}
	r.logger().Info("Wrote workbook", "path", path, "sheets", len(sheets))
	r.Artifact(kind, path, rows)
	return nil
}

// Complete marks the run completed.
func (r *Run) Complete(rows, breaks int) {
	if !r.recording() {
		return
	}
	if err := r.rec.repo.CompleteRun(r.id, rows, breaks); err != nil {
		r.rec.logger.Error("Failed to record run completion", "run_id", r.id, "error", err)
	}
}

// Fail marks the run failed and returns err unchanged.
func (r *Run) Fail(err error) error {
	if !r.recording() {
		return err
	}
	if ferr := r.rec.repo.FailRun(r.id, err); ferr != nil {
		r.rec.logger.Error("Failed to record run failure", "run_id", r.id, "error", ferr)
	}
	return err
}
