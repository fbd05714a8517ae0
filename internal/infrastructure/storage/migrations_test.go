package storage

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedMigrationCount is the number of migrations we expect to have
// Update this when adding new migrations
// Note: goose adds a version 0 entry when initializing, so total count is migrations + 1
const expectedMigrationCount = 3
const gooseVersionCount = expectedMigrationCount + 1

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMigrations_FreshDatabaseAndIdempotency(t *testing.T) {
	path := createTempDB(t)

	store, err := NewStorage(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStorage(path, nil)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, gooseVersionCount, count)
}

func TestMigrations_Schema(t *testing.T) {
	store := openTestStorage(t)

	for _, table := range []string{"recon_runs", "run_artifacts", "goose_db_version"} {
		err := store.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(new(int))
		assert.NoError(t, err, "%s table should exist", table)
	}
	err := store.db.QueryRow("SELECT duration_ms FROM recon_runs LIMIT 1").Scan(new(int))
	assert.ErrorIs(t, err, sql.ErrNoRows, "duration_ms column should exist")
}

func TestMigrations_RunDurationBackfill(t *testing.T) {
	// Arrange: a database created before duration_ms existed
	db, err := sql.Open("sqlite3", createTempDB(t))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrateTo(db, discardLogger(), 2))

	_, err = db.Exec(`
		INSERT INTO recon_runs (id, tool, started_at, completed_at, status) VALUES
		('done', 'positions', '2024-02-01T09:00:00Z', '2024-02-01T09:00:02.5Z', 'completed'),
		('open', 'positions', '2024-02-01T09:00:00Z', NULL, 'running')
	`)
	require.NoError(t, err)

	// Act
	require.NoError(t, migrate(db, discardLogger()))

	// Assert
	var done, open int64
	require.NoError(t, db.QueryRow(`SELECT duration_ms FROM recon_runs WHERE id = 'done'`).Scan(&done))
	require.NoError(t, db.QueryRow(`SELECT duration_ms FROM recon_runs WHERE id = 'open'`).Scan(&open))
	assert.Equal(t, int64(2500), done)
	assert.Equal(t, int64(0), open)
}
