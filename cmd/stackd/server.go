package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/stackd/internal/core/catalog"
	"github.com/artpar/stackd/internal/shell/api"
	mw "github.com/artpar/stackd/internal/shell/api/middleware"
	"github.com/artpar/stackd/internal/shell/docker"
	"github.com/artpar/stackd/internal/shell/runner"
	"github.com/artpar/stackd/internal/shell/store"
	"github.com/artpar/stackd/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitDockerError     = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the stackd application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	docker     docker.Client
	monitor    *workers.Monitor
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect to Docker
	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		s.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Verify Docker connection
	if err := d.Ping(); err != nil {
		s.Close()
		d.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Seed the built-in variant catalog. Upsert keeps operator-visible
	// variants current across binary upgrades.
	seedCtx := context.Background()
	for _, variant := range catalog.All() {
		v := variant
		if err := s.UpsertVariant(seedCtx, &v); err != nil {
			s.Close()
			d.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitDatabaseError,
			}
		}
	}
	logger.Info("variant catalog seeded", "variants", len(catalog.All()))

	// Create background monitor if enabled
	var monitor *workers.Monitor
	if cfg.Monitor.Enabled {
		run := runner.NewRunner(d, store.NewEventRecorder(s, logger), logger, cfg.Stacks.ConfigDir)
		run.SetStopTimeout(cfg.Stacks.StopTimeout)
		run.SetPullPolicy(cfg.Stacks.PullPolicy)

		monitorCfg := workers.DefaultMonitorConfig()
		if cfg.Monitor.Interval > 0 {
			monitorCfg.Interval = cfg.Monitor.Interval
		}
		if cfg.Monitor.MaxConcurrent > 0 {
			monitorCfg.MaxConcurrent = cfg.Monitor.MaxConcurrent
		}

		monitor = workers.NewMonitor(s, run, monitorCfg, logger)
		logger.Info("stack monitor enabled",
			"interval", monitorCfg.Interval,
			"max_concurrent", monitorCfg.MaxConcurrent,
		)
	} else {
		logger.Info("stack monitor disabled")
	}

	// Create HTTP handler
	handlerCfg := api.HandlerConfig{
		ConfigDir:   cfg.Stacks.ConfigDir,
		StopTimeout: cfg.Stacks.StopTimeout,
		PullPolicy:  cfg.Stacks.PullPolicy,
		Version:     Version,
		Monitor:     monitor,
	}
	if cfg.RateLimit.Enabled {
		handlerCfg.RateLimit = mw.RateLimitConfig{
			Limit:  cfg.RateLimit.Limit,
			Window: cfg.RateLimit.Window,
			Logger: logger,
		}
		logger.Info("rate limiting enabled",
			"limit", cfg.RateLimit.Limit,
			"window", cfg.RateLimit.Window,
		)
	}
	handler := api.NewHandlerWithConfig(s, d, logger, handlerCfg)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		docker:     d,
		monitor:    monitor,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start stack monitor in background
	if s.monitor != nil {
		s.monitor.Start()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop stack monitor
	if s.monitor != nil {
		s.monitor.Stop()
	}

	// Close Docker client
	if err := s.docker.Close(); err != nil {
		s.logger.Error("Docker client close error", "error", err)
	}

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
