package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"scontrino/internal/amqp"
	"scontrino/internal/config"
	"scontrino/internal/fx"
	apphttp "scontrino/internal/http"
	"scontrino/internal/log"
	"scontrino/internal/services"
	"scontrino/internal/session"
	"scontrino/internal/storage"
	"scontrino/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: "server"})
	log.SetDefault(logger)

	logger.Info("Starting scontrino server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	rates := fx.NewProvider(cfg.RatesURL)
	repo.SetDefaultDisplayCurrency(cfg.DisplayCurrency)

	// Re-warm the rate cache on a cron schedule so dashboard reads never pay
	// for a fetch inside the request.
	refresher := worker.NewRateRefresher(rates, cfg.RateBases)
	if err := refresher.Start(context.Background(), cfg.RateRefreshSchedule); err != nil {
		logger.Error("Failed to start rate refresher", "error", err, "schedule", cfg.RateRefreshSchedule)
		os.Exit(1)
	}
	defer refresher.Stop()

	// AMQP is optional; without it receipts stay local and the sync worker
	// picks them up from the pending set.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	// Sessions are optional; without a secret the API runs open under a
	// single implicit user.
	var sessions *session.Manager
	if cfg.JWTSecret != "" {
		sessions = session.NewManager([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)
		logger.Info("Session manager initialized", "access_ttl", cfg.AccessTokenTTL)
	} else {
		logger.Warn("JWT_SECRET not set - API is open, all requests share one user")
	}

	receipts := services.NewReceiptService(repo, amqpClient)
	recurring := services.NewRecurringService(repo)
	dashboard := services.NewDashboardService(repo, rates, recurring)

	srv := apphttp.NewServer(":"+cfg.Port, receipts, recurring, dashboard, repo, rates, sessions)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
