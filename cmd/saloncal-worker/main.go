package main

import (
	"context"
	"errors"
	"os"
	"time"

	"saloncal/internal/amqp"
	"saloncal/internal/cli"
	applog "saloncal/internal/log"
	"saloncal/internal/services"
	"saloncal/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting saloncal-worker", "backend", cfg.DataBackend)

	// The worker reads the store directly; it never publishes, so the
	// backend is opened without AMQP.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res, err := cli.OpenBackend(context.Background(), logger, &storeCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}

	sheets, err := cli.NewSheetsClient(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Store, sheets, cfg.SyncBatchSize)

	// Polling catches days whose messages were lost.
	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Sync processor stop error", applog.FieldError, err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Not fatal: the processor retries with backoff.
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeDaySaved(ctx, syncWorker.HandleDaySaved); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", applog.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
