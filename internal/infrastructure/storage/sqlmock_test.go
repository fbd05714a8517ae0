package storage

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newWithDB(db), mock
}

func TestStorage_StartRunInsertError(t *testing.T) {
	store, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO recon_runs")).
		WillReturnError(errors.New("disk full"))

	_, err := store.StartRun("positions", "", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CompleteRunUpdateError(t *testing.T) {
	store, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT started_at FROM recon_runs WHERE id = ?")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"started_at"}).AddRow("2024-02-01T09:00:00Z"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE recon_runs")).
		WillReturnError(errors.New("locked"))

	err := store.CompleteRun("run-1", 3, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetRunCorruptTimestamp(t *testing.T) {
	store, mock := newMockStorage(t)
	rows := sqlmock.NewRows([]string{
		"id", "tool", "profile", "parameters", "started_at", "completed_at",
		"duration_ms", "status", "rows_total", "breaks", "error_message",
	}).AddRow("run-1", "positions", "", "{}", "yesterday", nil, 0, "running", 0, 0, "")
	mock.ExpectQuery("SELECT id, tool").WithArgs("run-1").WillReturnRows(rows)

	_, err := store.GetRun("run-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "started_at")
}

func TestStorage_GetStatsQueryError(t *testing.T) {
	store, mock := newMockStorage(t)
	mock.ExpectQuery("SELECT status, COUNT").WillReturnError(errors.New("gone"))

	_, err := store.GetStats()

	assert.ErrorContains(t, err, "failed to read run stats")
}

func TestStorage_ListRunsCountError(t *testing.T) {
	store, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recon_runs WHERE tool = ?")).
		WithArgs("positions").
		WillReturnError(errors.New("gone"))

	_, err := store.ListRuns(RunFilters{Tool: "positions"})

	assert.ErrorContains(t, err, "failed to count runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}
