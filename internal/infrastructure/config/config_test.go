package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECON_DB_PATH", "test.db")
	t.Setenv("D1G1T_SERVER", "api-prod.example.com")
	t.Setenv("D1G1T_WORKERS", "8")
	t.Setenv("RECON_TOLERANCE", "0.5")
	t.Setenv("D1G1T_POLL_INTERVAL", "2s")

	cfg := LoadFromEnv()
	assert.NotNil(t, cfg)
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "api-prod.example.com", cfg.D1g1t.Server)
	assert.Equal(t, 8, cfg.D1g1t.Workers)
	assert.Equal(t, 0.5, cfg.Recon.Tolerance)
	assert.Equal(t, 2*time.Second, cfg.D1g1t.PollInterval)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("RECON_DB_PATH", "")
	t.Setenv("D1G1T_WORKERS", "not a number")

	cfg := LoadFromEnv()
	assert.Equal(t, "recon.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 4, cfg.D1g1t.Workers)
	assert.Equal(t, 100, cfg.D1g1t.PollLimit)
	assert.Equal(t, "api/v1", cfg.D1g1t.APIPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("RECON_DB_PATH", "fallback.db")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestLoad_EnvVarExpansionAndDefaults(t *testing.T) {
	// Arrange
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
d1g1t:
  server: "${TEST_D1G1T_SERVER}"
  password: "${TEST_D1G1T_PASSWORD}"
  poll_interval: 3s
storage:
  database_path: "${TEST_DB_PATH}"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	t.Setenv("TEST_D1G1T_SERVER", "api-gamma.example.com")
	t.Setenv("TEST_D1G1T_PASSWORD", "secret")
	t.Setenv("TEST_DB_PATH", "expanded.db")

	// Act
	cfg, err := Load(configPath)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "api-gamma.example.com", cfg.D1g1t.Server)
	assert.Equal(t, "secret", cfg.D1g1t.Password)
	assert.Equal(t, 3*time.Second, cfg.D1g1t.PollInterval)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 100, cfg.D1g1t.PollLimit, "unset keys keep defaults")
	assert.Equal(t, "maven", cfg.Observability.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad level", content: "observability:\n  logging:\n    level: loud\n"},
		{name: "negative tolerance", content: "recon:\n  tolerance: -1\n"},
		{name: "too many workers", content: "d1g1t:\n  workers: 500\n"},
		{name: "empty database path", content: "storage:\n  database_path: \"\"\n"},
		{name: "not yaml", content: "d1g1t: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}

func TestGetSecret(t *testing.T) {
	t.Setenv("SECOND", "from-env")
	cfg := &Config{}

	assert.Equal(t, "from-config", cfg.GetSecret("from-config", "SECOND"))
	assert.Equal(t, "from-env", cfg.GetSecret("", "FIRST_UNSET_FOR_TEST", "SECOND"))
	assert.Equal(t, "", cfg.GetSecret("", "FIRST_UNSET_FOR_TEST"))
}
