// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/donhauser001/dongui/internal/api"
	"github.com/donhauser001/dongui/internal/api/handlers"
	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/db"
	"github.com/donhauser001/dongui/internal/logger"
	"github.com/donhauser001/dongui/internal/metrics"
	"github.com/donhauser001/dongui/internal/ratelimit"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting dongui server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	database, err := Bootstrap(appCfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	var limiter ratelimit.Limiter
	if appCfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(appCfg.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		defer limiter.Close()
		slog.Info("Rate limiter initialized",
			"backend", appCfg.RateLimit.Backend,
			"requests", appCfg.RateLimit.Requests,
			"window", appCfg.RateLimit.Window)
	}

	router := api.NewRouter(appCfg, database, limiter, metrics.New())
	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("dongui exited")
	return nil
}

// Bootstrap opens the database, migrates the schema, seeds the system roles
// and permissions and creates the default admin when configured.
func Bootstrap(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = cfg.Log.Level
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", cfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	seed, err := db.LoadSeed()
	if err != nil {
		return nil, err
	}
	if err := db.Seed(database, seed); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	if err := db.CreateDefaultAdmin(database, cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to create default admin user: %w", err)
	}
	return database, nil
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}
