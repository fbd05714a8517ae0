// Package migrations holds the Go migrations of the run history database.
// SQL migrations live next to them and are embedded by the storage package.
package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upRunDuration, downRunDuration)
}

// upRunDuration adds recon_runs.duration_ms and fills it for finished runs
// from their RFC 3339 timestamps.
func upRunDuration(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE recon_runs ADD COLUMN duration_ms INTEGER NOT NULL DEFAULT 0`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, started_at, completed_at FROM recon_runs
		WHERE completed_at IS NOT NULL
	`)
	if err != nil {
		return err
	}

	durations := map[string]int64{}
	for rows.Next() {
		var id, started, completed string
		if err := rows.Scan(&id, &started, &completed); err != nil {
			rows.Close()
			return err
		}
		s, err1 := time.Parse(time.RFC3339Nano, started)
		c, err2 := time.Parse(time.RFC3339Nano, completed)
		if err1 != nil || err2 != nil {
			continue
		}
		durations[id] = c.Sub(s).Milliseconds()
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, ms := range durations {
		if _, err := tx.ExecContext(ctx, `UPDATE recon_runs SET duration_ms = ? WHERE id = ?`, ms, id); err != nil {
			return err
		}
	}
	return nil
}

func downRunDuration(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE recon_runs DROP COLUMN duration_ms`)
	return err
}
