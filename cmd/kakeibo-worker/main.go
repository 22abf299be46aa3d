package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/config"
	"kakeibo/internal/event"
	"kakeibo/internal/export/sheets"
	gsheet "kakeibo/internal/export/sheets/google"
	"kakeibo/internal/store"
	"kakeibo/internal/store/memory"
	"kakeibo/internal/store/sqlite"
	"kakeibo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting kakeibo-worker")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads ledger state from the same backend the server writes to.
	var backend store.Backend
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		backend = repo
	default:
		backend = memory.New()
		logger.Warn("Memory backend selected - the worker will not see server writes", "backend", cfg.DataBackend)
	}

	// Initialize Google Sheets mirror (optional)
	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Initialize AMQP client for consuming change messages
	amqpClient, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if mirror != nil {
		syncWorker := worker.NewSyncWorker(backend, mirror)

		go func() {
			if err := amqpClient.ConsumeChanges(ctx, syncWorker.HandleChange); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", "error", err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping change consumption - no mirror available")
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight message a moment to finish
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
