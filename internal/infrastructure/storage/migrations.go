package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	_ "github.com/AlanFontoura/myscripts/internal/infrastructure/storage/migrations"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// migrate applies every pending migration.
func migrate(db *sql.DB, logger *slog.Logger) error {
	return migrateTo(db, logger, -1)
}

// migrateTo applies migrations up to version, or all of them when version < 0.
func migrateTo(db *sql.DB, logger *slog.Logger, version int64) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger: logger.With("system", "storage")})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	var err error
	if version < 0 {
		err = goose.Up(db, migrationsDir)
	} else {
		err = goose.UpTo(db, migrationsDir, version)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
