package main

import (
	"context"
	"os"

	"ildang/internal/backend"
	"ildang/internal/cli"
	"ildang/internal/log"
	"ildang/internal/sheets"
	gsheet "ildang/internal/sheets/google"
	memsheet "ildang/internal/sheets/memory"
	"ildang/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		log.Default(log.ComponentWorker).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := cfg.Logger()
	log.SetDefault(logger)
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting ildang-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected, the worker will only see its own empty store")
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", log.FieldError, err)
		}
	}()

	// Initialize Google Sheets client for month tabs (optional)
	var writer sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	// The factory's AMQP client both publishes and consumes; without it only
	// the periodic export runs.
	var consumer worker.ChangeConsumer
	if res.Publisher != nil {
		consumer = res.Publisher
	} else {
		logger.Warn("AMQP disabled or unreachable, relying on periodic export", "interval", cfg.ExportInterval)
	}

	w := worker.NewExportWorker(res.Store, writer)
	if err := w.Run(ctx, consumer, cfg.ExportInterval); err != nil {
		logger.Error("Export worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
