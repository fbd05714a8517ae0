package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = time.RFC3339Nano

// Storage provides SQLite database access for run history.
// It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath and applies
// pending migrations.
func NewStorage(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	// Enable foreign key constraints on every pooled connection (SQLite-specific)
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dbPath+sep+"_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newWithDB(db), nil
}

func newWithDB(db *sql.DB) *Storage {
	return &Storage{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun inserts a running run.
func (s *Storage) StartRun(tool, profile string, params map[string]string) (*Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	if params == nil {
		paramsJSON = []byte("{}")
	}

	run := &Run{
		ID:         uuid.NewString(),
		Tool:       tool,
		Profile:    profile,
		Parameters: params,
		StartedAt:  s.now(),
		Status:     StatusRunning,
	}
	_, err = s.db.Exec(`
		INSERT INTO recon_runs (id, tool, profile, parameters, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Tool, run.Profile, string(paramsJSON), run.StartedAt.Format(timeLayout), run.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// CompleteRun records totals and marks the run completed.
func (s *Storage) CompleteRun(runID string, rows, breaks int) error {
	return s.finish(runID, StatusCompleted, rows, breaks, "")
}

// FailRun marks the run failed.
func (s *Storage) FailRun(runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.finish(runID, StatusFailed, 0, 0, msg)
}

func (s *Storage) finish(runID, status string, rows, breaks int, msg string) error {
	var started string
	err := s.db.QueryRow(`SELECT started_at FROM recon_runs WHERE id = ?`, runID).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	completed := s.now()
	var duration int64
	if st, err := time.Parse(timeLayout, started); err == nil {
		duration = completed.Sub(st).Milliseconds()
	}

	_, err = s.db.Exec(`
		UPDATE recon_runs
		SET completed_at = ?, duration_ms = ?, status = ?, rows_total = ?, breaks = ?, error_message = ?
		WHERE id = ?
	`, completed.Format(timeLayout), duration, status, rows, breaks, msg, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `id, tool, profile, parameters, started_at, completed_at, duration_ms, status, rows_total, breaks, error_message`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		params    string
		started   string
		completed sql.NullString
	)
	err := row.Scan(&run.ID, &run.Tool, &run.Profile, &params, &started, &completed,
		&run.DurationMs, &run.Status, &run.RowsTotal, &run.Breaks, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	if params != "" && params != "{}" && params != "null" {
		if err := json.Unmarshal([]byte(params), &run.Parameters); err != nil {
			return nil, fmt.Errorf("run %s parameters: %w", run.ID, err)
		}
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s started_at: %w", run.ID, err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("run %s completed_at: %w", run.ID, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *Storage) GetRun(runID string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM recon_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs matching filters, newest first.
func (s *Storage) ListRuns(filters RunFilters) (*RunListResult, error) {
	var (
		where []string
		args  []any
	)
	if filters.Tool != "" {
		where = append(where, "tool = ?")
		args = append(args, filters.Tool)
	}
	if filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filters.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	result := &RunListResult{Runs: []*Run{}, Limit: filters.limit(), Offset: filters.Offset}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM recon_runs`+clause, args...).Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM recon_runs`+clause+` ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		append(args, result.Limit, result.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result.Runs = append(result.Runs, run)
	}
	return result, rows.Err()
}

// GetStats aggregates run counts and breaks overall and per tool.
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{ToolStats: map[string]ToolStats{}}

	rows, err := s.db.Query(`SELECT status, COUNT(*), COALESCE(SUM(breaks), 0) FROM recon_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to read run stats: %w", err)
	}
	for rows.Next() {
		var (
			status        string
			count, breaks int
		)
		if err := rows.Scan(&status, &count, &breaks); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.add(status, count, breaks)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT tool, COUNT(*), COALESCE(SUM(breaks), 0), MAX(started_at)
		FROM recon_runs GROUP BY tool
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool stats: %w", err)
	}
	for rows.Next() {
		var (
			tool string
			ts   ToolStats
		)
		if err := rows.Scan(&tool, &ts.Runs, &ts.Breaks, &ts.LastRunAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ToolStats[tool] = ts
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_artifacts`).Scan(&stats.TotalArtifacts); err != nil {
		return nil, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return stats, nil
}

// AddArtifact records a file written by a run and sets its ID.
func (s *Storage) AddArtifact(a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	res, err := s.db.Exec(`
		INSERT INTO run_artifacts (run_id, kind, path, rows, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.RunID, a.Kind, a.Path, a.Rows, a.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to add artifact %s: %w", a.Path, err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// ListArtifacts returns the artifacts of a run in insertion order.
func (s *Storage) ListArtifacts(runID string) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, kind, path, rows, created_at
		FROM run_artifacts WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	artifacts := []Artifact{}
	for rows.Next() {
		var (
			a       Artifact
			created string
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.Kind, &a.Path, &a.Rows, &created); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("artifact %d created_at: %w", a.ID, err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
