package clients

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewClients_WithHistory(t *testing.T) {
	// Arrange
	cfg := &config.Config{Storage: config.StorageConfig{DatabasePath: filepath.Join(t.TempDir(), "runs.db")}}

	// Act
	c, err := NewClients(context.Background(), cfg, quiet(), Options{History: true})

	// Assert
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, c.Files)
	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Recorder)
}

func TestNewClients_WithoutHistory(t *testing.T) {
	c, err := NewClients(context.Background(), &config.Config{}, quiet(), Options{})

	require.NoError(t, err)
	assert.Nil(t, c.Store)
	assert.NotNil(t, c.Recorder)
	assert.NoError(t, c.Close())
}

func TestClients_D1g1t_MissingCredentials(t *testing.T) {
	t.Setenv("D1G1T_USERNAME", "")
	t.Setenv("D1G1T_PASSWORD", "")
	c, err := NewClients(context.Background(), &config.Config{}, quiet(), Options{})
	require.NoError(t, err)

	_, err = c.D1g1t(context.Background(), &config.Config{D1g1t: config.D1g1tConfig{Server: "demo"}}, "", quiet())

	assert.ErrorIs(t, err, ErrMissingCredentials)
}
