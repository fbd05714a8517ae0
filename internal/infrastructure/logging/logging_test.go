package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
)

func TestMavenHandler_Format(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, nil)).With("system", "navhistory", "level_name", "accounts")

	// Act
	logger.Info("Downloaded entity", "entity", "ACC-1", "note", "two words")
	logger.WithGroup("calc").Warn("Still waiting", "polls", 3)
	logger.Debug("hidden")

	// Assert
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[INFO\] \[navhistory\] \[\d\d:\d\d:\d\d\] Downloaded entity level_name=accounts entity=ACC-1 note="two words"$`, lines[0])
	assert.Regexp(t, `^\[WARN\] \[navhistory\] \[\d\d:\d\d:\d\d\] Still waiting level_name=accounts calc\.polls=3$`, lines[1])
}

func TestMavenHandler_GroupAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Debug("Run", slog.Group("run", "id", "abc", "rows", 2), "took", time.Second)

	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), " Run run.id=abc run.rows=2 took=1s")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewHandler_Formats(t *testing.T) {
	var buf bytes.Buffer

	slog.New(NewHandler(&buf, config.LoggingConfig{Format: "json"})).Info("hello", "k", 1)

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":1`)
}

func TestTeeHandler(t *testing.T) {
	var info, debug bytes.Buffer
	tee := NewTeeHandler(
		NewMavenHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		NewMavenHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(tee).With("system", "recon")

	logger.Debug("detail")
	logger.Info("summary")

	assert.NotContains(t, info.String(), "detail")
	assert.Contains(t, info.String(), "[recon]")
	assert.Contains(t, debug.String(), "detail")
	assert.Contains(t, debug.String(), "summary")
}

func TestLogFileName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	assert.Equal(t, filepath.Join("logs", "positions_2024-03-05_14-07-09.log"), LogFileName("logs", "positions", at))
}

func TestNewRunLogger_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closeFn, err := NewRunLogger(config.LoggingConfig{Level: "info", Dir: dir}, "overnight")
	require.NoError(t, err)
	logger.Info("Downloaded", "files", 3)
	require.NoError(t, closeFn())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "overnight_"))
	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(body), "[INFO] [overnight]")
	assert.Contains(t, string(body), "Downloaded files=3")
}
