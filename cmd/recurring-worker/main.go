package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/config"
	"kakeibo/internal/event"
	"kakeibo/internal/services"
	"kakeibo/internal/store"
	"kakeibo/internal/store/memory"
	"kakeibo/internal/store/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

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
		logger.Warn("Memory backend selected - posted entries will not persist", "backend", cfg.DataBackend)
	}

	// Initialize AMQP client so posted entries fan out to the sync worker (optional)
	var events services.ChangePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in local-only mode", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized - posted entries will sync via kakeibo-worker")
		}
	} else {
		logger.Info("AMQP disabled - posted entries will not sync to Google Sheets")
	}

	ledgerSvc := services.NewLedgerService(backend, events)
	processor := services.NewRecurringProcessor(backend, ledgerSvc)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring payment processor configured",
		"interval", cfg.RecurringInterval,
		"user", cfg.DefaultUserID)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Run initial processing on startup
	logger.Info("Running initial recurring payment processing...")
	if count, err := processor.ProcessDue(ctx, cfg.DefaultUserID, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "entries_posted", count)
	}

	// Start periodic processing
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing due recurring payments...")
				count, err := processor.ProcessDue(ctx, cfg.DefaultUserID, now)
				if err != nil {
					logger.Error("Periodic processing failed", "error", err)
				} else {
					logger.Info("Periodic processing complete",
						"entries_posted", count,
						"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()

	time.Sleep(2 * time.Second)
	logger.Info("Recurring-worker shutdown complete")
}
