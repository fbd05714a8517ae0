// Package api serves the run history and chart-table flattening over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlanFontoura/myscripts/internal/api/handlers"
	"github.com/AlanFontoura/myscripts/internal/api/middleware"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns the defaults used when the config file sets none.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
}

// NewServer creates a new API server. Run history routes need repo.
func NewServer(cfg Config, repo storage.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	if len(s.config.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = s.config.AllowedOrigins
	}
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		if s.repo != nil {
			runsHandler := handlers.NewRunsHandler(s.repo)
			r.Get("/runs", runsHandler.List)
			r.Get("/runs/{id}", runsHandler.Get)
			r.Get("/runs/{id}/artifacts", runsHandler.Artifacts)

			statsHandler := handlers.NewStatsHandler(s.repo)
			r.Get("/stats", statsHandler.Get)
		}

		chartTable := handlers.NewChartTableHandler(s.logger)
		r.Post("/charttable/flatten", chartTable.Flatten)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
