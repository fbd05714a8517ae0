// Package clients builds the external clients every tool needs from the
// configuration: the file resolver (local paths and S3), the run history
// store and the d1g1t API client.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	c, err := clients.NewClients(ctx, cfg, logger, clients.Options{S3: true, History: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//	api, err := c.D1g1t(ctx, cfg, "", logger)
package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AlanFontoura/myscripts/internal/adapters/d1g1t"
	"github.com/AlanFontoura/myscripts/internal/adapters/objectstore"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// ErrMissingCredentials is returned when the d1g1t server, username or
// password is not configured.
var ErrMissingCredentials = errors.New("missing d1g1t credentials")

// Options selects the optional clients.
type Options struct {
	// S3 resolves s3:// URIs; without it only local paths work.
	S3 bool
	// History records runs in the SQLite database.
	History bool
}

// Clients holds all initialized service clients
type Clients struct {
	Files    *objectstore.Resolver
	Store    *storage.Storage
	Recorder *runs.Recorder
}

// NewClients initializes the clients selected by opts.
func NewClients(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Clients{Files: objectstore.NewResolver(nil)}

	if opts.S3 {
		s3Client, err := objectstore.NewS3Client(ctx, cfg.S3.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		c.Files = objectstore.NewS3Resolver(s3Client)
	}

	if opts.History {
		store, err := storage.NewStorage(cfg.Storage.DatabasePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		c.Store = store
		c.Recorder = runs.NewRecorder(store, logger)
	} else {
		c.Recorder = runs.NewRecorder(nil, logger)
	}
	return c, nil
}

// D1g1t creates a client for server (the configured server when empty) and
// logs in. The password falls back to the D1G1T_PASSWORD environment variable.
func (c *Clients) D1g1t(ctx context.Context, cfg *config.Config, server string, logger *slog.Logger) (*d1g1t.Client, error) {
	if server == "" {
		server = cfg.D1g1t.Server
	}
	username := cfg.GetSecret(cfg.D1g1t.Username, "D1G1T_USERNAME")
	password := cfg.GetSecret(cfg.D1g1t.Password, "D1G1T_PASSWORD")
	if server == "" || username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	client := d1g1t.NewClient(d1g1t.Options{
		Server:            server,
		APIPrefix:         cfg.D1g1t.APIPrefix,
		RequestsPerSecond: cfg.D1g1t.RequestsPerSecond,
		PollLimit:         cfg.D1g1t.PollLimit,
		PollInterval:      cfg.D1g1t.PollInterval,
	}, logger)
	if err := client.Login(ctx, username, password); err != nil {
		return nil, err
	}
	return client, nil
}

// Close releases the run history database.
func (c *Clients) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
