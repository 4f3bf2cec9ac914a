package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saloncal/internal/cli"
	apphttp "saloncal/internal/http"
	applog "saloncal/internal/log"
	"saloncal/internal/services"
	"saloncal/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	res, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc, err := cli.NewBookingService(cfg, res)
	if err != nil {
		logger.Error("Failed to initialize booking service", applog.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}
	caches := cli.StartCacheCleanup(svc, time.Minute)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	}, svc)
	if err != nil {
		logger.Error("Failed to initialize HTTP server", applog.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	// Without a broker the server mirrors pending days itself.
	var processor *services.SyncProcessor
	if cfg.AMQPURL == "" && cfg.GoogleSpreadsheetID != "" {
		sheets, err := cli.NewSheetsClient(context.Background(), cfg)
		if err != nil {
			logger.Warn("Google Sheets mirror disabled", applog.FieldError, err)
		} else {
			w := worker.NewSyncWorker(res.Store, sheets, cfg.SyncBatchSize)
			processor = services.NewSyncProcessor(w, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if processor != nil {
			if err := processor.Stop(shutdownCtx); err != nil {
				logger.Error("Sync processor stop error", applog.FieldError, err)
			}
		}
		caches.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", applog.FieldError, err)
		}
	}

	logger.Info("Starting saloncal server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", cfg.AMQPURL != "",
		"sheets", cfg.GoogleSpreadsheetID != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
