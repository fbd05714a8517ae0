package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AlanFontoura/myscripts/internal/clients"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/logging"
)

// Env is what a tool needs once its flags are parsed.
type Env struct {
	Config  *config.Config
	Logger  *slog.Logger
	Clients *clients.Clients
	// Profile is nil when no -profile was given.
	Profile *config.Profile

	closeLog func() error
}

// Setup loads the configuration, the logger, the clients and the profile.
func Setup(ctx context.Context, tool string, common Common, opts clients.Options) (*Env, error) {
	cfg := loadConfig(common.ConfigFile)
	loggingCfg := cfg.Observability.Logging
	if common.Verbose {
		loggingCfg.Level = "debug"
	}
	logger, closeLog, err := logging.NewRunLogger(loggingCfg, tool)
	if err != nil {
		return nil, err
	}
	if common.ConfigFile == "" {
		logger.Debug("Using config.yaml or environment variables")
	}

	env := &Env{Config: cfg, Logger: logger, closeLog: closeLog}
	if common.Profile != "" {
		path := common.ProfileFile
		if path == "" {
			path = cfg.Recon.ProfileFile
		}
		if env.Profile, err = config.LoadProfile(path, common.Profile); err != nil {
			_ = closeLog()
			return nil, err
		}
		if env.Profile.Region != "" && cfg.S3.Region == "" {
			cfg.S3.Region = env.Profile.Region
		}
	}

	opts.History = opts.History && !common.NoHistory
	if env.Clients, err = clients.NewClients(ctx, cfg, logger, opts); err != nil {
		_ = closeLog()
		return nil, err
	}
	return env, nil
}

func loadConfig(path string) *config.Config {
	if path != "" {
		return config.LoadOrEnvWithPath(path)
	}
	for _, candidate := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.LoadOrEnvWithPath(candidate)
		}
	}
	return config.LoadFromEnv()
}

// Close releases the clients and the log file.
func (e *Env) Close() {
	if err := e.Clients.Close(); err != nil {
		e.Logger.Warn("Failed to close run history", "error", err)
	}
	_ = e.closeLog()
}

// Fatal logs err and exits.
func Fatal(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
