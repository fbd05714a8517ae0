package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlanFontoura/myscripts/internal/api"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/logging"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigFile string
	// Port overrides server.port when non-zero.
	Port    int
	Verbose bool
}

// ParseServeFlags parses args for the serve command.
func ParseServeFlags(args []string) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (defaults to server.port)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// ServerConfig builds the API config from the file settings and flags.
func ServerConfig(cfg *config.Config, flags *ServeFlags) api.Config {
	apiCfg := api.DefaultConfig()
	if cfg.Server.Port > 0 {
		apiCfg.Port = cfg.Server.Port
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}
	return apiCfg
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := api.NewServer(ServerConfig(cfg, flags), store, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
