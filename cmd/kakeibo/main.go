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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/auth"
	"kakeibo/internal/config"
	"kakeibo/internal/event"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/insight"
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

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend (default: memory)
	var (
		backend store.Backend
		cleanup store.CleanupFunc
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		backend, cleanup = repo, repo.Close
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		backend = memory.New()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}
	if cleanup != nil {
		defer func() {
			if err := cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// Initialize AMQP client for change fan-out (optional)
	var events services.ChangePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change fan-out", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - changes will not fan out to the sync worker")
	}

	ledgerSvc := services.NewLedgerService(backend, events)
	budgetSvc := services.NewBudgetService(backend, events, cfg.DefaultPaydaySettings())

	// Initialize insight adapter (optional)
	var ai insight.Client
	if cfg.InsightAPIKey != "" {
		client, err := insight.NewGeminiClient(insight.Config{
			APIKey:   cfg.InsightAPIKey,
			Model:    cfg.InsightModel,
			Endpoint: cfg.InsightEndpoint,
		})
		if err != nil {
			logger.Error("Failed to initialize insight client", "error", err)
			os.Exit(1)
		}
		ai = client
		logger.Info("Insight adapter initialized", "model", cfg.InsightModel)
	} else {
		logger.Info("Insight adapter disabled - no INSIGHT_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, budgetSvc, ledgerSvc, ai, auth.NewHeaderIdentity(cfg.DefaultUserID))

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Ledger snapshot stream: invalidate cached views when the ledger
	// changes outside a request, e.g. recurring postings. Backends without
	// change notification fall back to request-time reads.
	if snapshots, stopWatch, err := ledgerSvc.Watch(ctx, cfg.DefaultUserID); err == nil {
		g.Go(func() error {
			defer stopWatch()
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-snapshots:
					if !ok {
						return nil
					}
					srv.InvalidateAccount(cfg.DefaultUserID)
				}
			}
		})
	} else {
		logger.Info("Ledger watch unavailable, serving request-time reads", "reason", err)
	}

	g.Go(func() error {
		logger.Info("Starting kakeibo server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
