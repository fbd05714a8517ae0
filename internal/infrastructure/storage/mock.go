package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu        sync.Mutex
	runs      map[string]*Run
	artifacts []Artifact
	nextID    int64

	// Hooks for test assertions
	StartRunCalled    bool
	CompleteRunCalled bool
	FailRunCalled     bool

	// Error injection for testing error paths
	StartRunErr    error
	CompleteRunErr error
	FailRunErr     error
	AddArtifactErr error
	GetRunErr      error
	ListRunsErr    error
	GetStatsErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{runs: make(map[string]*Run), nextID: 1}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) StartRun(tool, profile string, params map[string]string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return nil, m.StartRunErr
	}
	run := &Run{
		ID:         uuid.NewString(),
		Tool:       tool,
		Profile:    profile,
		Parameters: params,
		StartedAt:  time.Now().UTC(),
		Status:     StatusRunning,
	}
	m.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (m *MockRepository) CompleteRun(runID string, rows, breaks int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	m.finish(run, StatusCompleted)
	run.RowsTotal, run.Breaks = rows, breaks
	return nil
}

func (m *MockRepository) FailRun(runID string, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailRunCalled = true
	if m.FailRunErr != nil {
		return m.FailRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	m.finish(run, StatusFailed)
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	return nil
}

func (m *MockRepository) finish(run *Run, status string) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.DurationMs = now.Sub(run.StartedAt).Milliseconds()
	run.Status = status
}

func (m *MockRepository) GetRun(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	cp := *run
	return &cp, nil
}

func (m *MockRepository) ListRuns(filters RunFilters) (*RunListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	var matched []*Run
	for _, r := range m.runs {
		if (filters.Tool == "" || r.Tool == filters.Tool) && (filters.Status == "" || r.Status == filters.Status) {
			cp := *r
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })

	result := &RunListResult{Runs: []*Run{}, TotalCount: len(matched), Limit: filters.limit(), Offset: filters.Offset}
	if filters.Offset < len(matched) {
		end := min(filters.Offset+result.Limit, len(matched))
		result.Runs = matched[filters.Offset:end]
	}
	return result, nil
}

func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}
	stats := &Stats{ToolStats: map[string]ToolStats{}, TotalArtifacts: len(m.artifacts)}
	for _, r := range m.runs {
		stats.add(r.Status, 1, r.Breaks)
		ts := stats.ToolStats[r.Tool]
		ts.Runs++
		ts.Breaks += r.Breaks
		if started := r.StartedAt.Format(timeLayout); started > ts.LastRunAt {
			ts.LastRunAt = started
		}
		stats.ToolStats[r.Tool] = ts
	}
	return stats, nil
}

func (m *MockRepository) AddArtifact(a *Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddArtifactErr != nil {
		return m.AddArtifactErr
	}
	if _, ok := m.runs[a.RunID]; !ok {
		return fmt.Errorf("run %s: %w", a.RunID, ErrNotFound)
	}
	a.ID = m.nextID
	m.nextID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.artifacts = append(m.artifacts, *a)
	return nil
}

func (m *MockRepository) ListArtifacts(runID string) ([]Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Artifact{}
	for _, a := range m.artifacts {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Runs returns a snapshot of every stored run.
func (m *MockRepository) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out
}
