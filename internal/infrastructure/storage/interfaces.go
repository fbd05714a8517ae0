package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	ArtifactRepository
	Close() error
}

// RunRepository tracks tool runs
type RunRepository interface {
	// StartRun records the start of a run and returns it with a fresh ID
	StartRun(tool, profile string, params map[string]string) (*Run, error)

	// CompleteRun marks a run completed with its totals
	CompleteRun(runID string, rows, breaks int) error

	// FailRun marks a run failed with the error message
	FailRun(runID string, runErr error) error

	// GetRun retrieves a run by ID, ErrNotFound when missing
	GetRun(runID string) (*Run, error)

	// ListRuns returns runs matching the given filters with pagination, newest first
	ListRuns(filters RunFilters) (*RunListResult, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// ArtifactRepository tracks the files a run wrote
type ArtifactRepository interface {
	AddArtifact(artifact *Artifact) error
	ListArtifacts(runID string) ([]Artifact, error)
}

// RunFilters defines filters for listing runs
type RunFilters struct {
	Tool   string // Filter by tool (empty = all)
	Status string // Filter by status (empty = all)
	Limit  int    // Max results (0 = default 50)
	Offset int    // Pagination offset
}

// RunListResult contains paginated run results
type RunListResult struct {
	Runs       []*Run `json:"runs"`
	TotalCount int    `json:"total_count"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

const defaultListLimit = 50

func (f RunFilters) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
