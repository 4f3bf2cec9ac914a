// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/saloncal, cmd/saloncal-worker and cmd/salonctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saloncal/internal/backend"
	"saloncal/internal/cache"
	"saloncal/internal/config"
	"saloncal/internal/core"
	applog "saloncal/internal/log"
	"saloncal/internal/metrics"
	"saloncal/internal/services"
	gsheet "saloncal/internal/sheets/google"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the store selected by DATA_BACKEND, with the AMQP
// publisher attached when AMQP_URL is set.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	return factory.CreateBackend(ctx, bcfg)
}

// ServiceOptions maps the configuration onto BookingService options.
func ServiceOptions(cfg *config.Config) (services.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return services.Options{}, fmt.Errorf("load timezone: %w", err)
	}
	return services.Options{
		Goal: core.Goal{
			Customers: cfg.GoalCustomers,
			UnitPrice: core.Yen(cfg.GoalUnitPrice),
		},
		Location:     loc,
		IncludeToday: cfg.IncludeToday,
		DefaultPIN:   cfg.DefaultPIN,
		UnlockTTL:    cfg.UnlockTTL,
		CacheTTL:     cfg.CacheTTL,
	}, nil
}

// NewBookingService wires the service onto an opened backend.
func NewBookingService(cfg *config.Config, res *backend.BackendResult) (*services.BookingService, error) {
	opts, err := ServiceOptions(cfg)
	if err != nil {
		return nil, err
	}
	return services.NewBookingService(res.Store, res.Publisher, opts), nil
}

// StartCacheCleanup sweeps the service caches periodically and exports
// their sizes. Stop the returned manager on shutdown.
func StartCacheCleanup(svc *services.BookingService, interval time.Duration) *cache.Manager {
	mgr := cache.NewManager()
	for name, c := range svc.Caches() {
		mgr.Register(name, c)
	}
	mgr.OnClean(func(name string, _, size int) {
		metrics.CacheSize(name, size)
	})
	if interval <= 0 {
		interval = time.Minute
	}
	mgr.StartCleanup(interval)
	return mgr
}

// NewSheetsClient builds the Google Sheets mirror from the configuration.
func NewSheetsClient(ctx context.Context, cfg *config.Config) (*gsheet.Client, error) {
	return gsheet.NewClient(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
