package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/rollout/internal/orchestrator"
	"github.com/artpar/rollout/internal/shell/api"
	"github.com/artpar/rollout/internal/shell/audit"
	"github.com/artpar/rollout/internal/shell/deploy"
	"github.com/artpar/rollout/internal/shell/migrate"
	"github.com/artpar/rollout/internal/shell/probe"
	"github.com/artpar/rollout/internal/shell/provider"
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

// Server represents the rollout application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      *audit.SQLiteAuditor
	docker     deploy.Client
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Connect to the audit database
	store, err := audit.NewSQLiteAuditor(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect to Docker
	docker, err := deploy.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		store.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Verify Docker connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := docker.Ping(pingCtx); err != nil {
		store.Close()
		docker.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Validate the credential sealing key
	var sealingKey []byte
	if cfg.Secrets.SealingKey != "" {
		sealingKey = []byte(cfg.Secrets.SealingKey)
		if len(sealingKey) != 32 {
			store.Close()
			docker.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      errors.New("secrets.sealing_key must be exactly 32 bytes for AES-256-GCM"),
				ExitCode: ExitConfigError,
			}
		}
	}

	// Create the standby provisioner when provider credentials are configured
	var provisioner orchestrator.EnvProvisioner
	if cfg.Providers.Enabled() {
		provisioner = provider.NewStandbyProvisioner(provider.Credentials{
			AWSAccessKeyID:     cfg.Providers.AWSAccessKeyID,
			AWSSecretAccessKey: cfg.Providers.AWSSecretAccessKey,
			DigitalOceanToken:  cfg.Providers.DigitalOceanToken,
			HetznerToken:       cfg.Providers.HetznerToken,
		}, logger)
		logger.Info("standby provisioning enabled")
	}

	// Create the migration checker when a migrations dir is configured
	var migrations orchestrator.MigrationChecker
	if cfg.Database.MigrationsDir != "" {
		migrations = migrate.NewSQLiteChecker(os.DirFS(cfg.Database.MigrationsDir), ".", logger)
		logger.Info("migration readiness checks enabled",
			"migrations_dir", cfg.Database.MigrationsDir,
		)
	}

	prober := probe.NewHTTPProber(probe.Config{
		Timeout:    cfg.Probe.Timeout,
		Retries:    cfg.Probe.Retries,
		RetryDelay: cfg.Probe.RetryDelay,
	}, logger)

	handler := api.NewHandler(api.Config{
		Store:       store,
		Docker:      docker,
		Prober:      prober,
		Provisioner: provisioner,
		Migrations:  migrations,
		SealingKey:  sealingKey,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      store,
		docker:     docker,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

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

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.docker.Close(); err != nil {
		s.logger.Error("Docker client close error", "error", err)
	}

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
