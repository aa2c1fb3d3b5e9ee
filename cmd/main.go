/**
 * @description
 * Entry point for the confirmation service.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/walletgate/confirmation-service/internal/api"
	"github.com/walletgate/confirmation-service/internal/app"
	"github.com/walletgate/confirmation-service/internal/config"
	"github.com/walletgate/confirmation-service/internal/store"
	"github.com/walletgate/confirmation-service/pkg/ledgerclient"
	wgrabbit "github.com/walletgate/confirmation-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 50
	pgConfig.MinConns = 5
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Ensure the confirmation table exists (idempotent). The accounts table
	// is owned by the identity system and is not created here.
	if _, err := dbpool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS confirmation_records (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            account_id UUID NOT NULL UNIQUE,
            confirmed BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `); err != nil {
		logger.Warn("failed ensuring confirmation table (may already exist)", "error", err)
	}

	confirmations := store.NewConfirmationRepository(dbpool)
	users := store.NewUserRepository(dbpool)
	ledger := ledgerclient.NewClient(cfg.LedgerServiceURL, cfg.LedgerInternalAPIKey)

	var publisher app.EventPublisher = &wgrabbit.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := wgrabbit.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
			logger.Info("rabbitmq producer connected")
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	var cache app.SessionCache = app.NoopSessionCache{}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			logger.Warn("redis url parse failed, session cache disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed, session cache disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				cache = app.NewRedisSessionCache(redisClient)
				logger.Info("redis session cache connected")
			}
			cancelPing()
		}
	}

	policy := app.NewPolicy(cfg, confirmations)
	workflow := app.NewWorkflow(cfg, users, confirmations, ledger, policy, cache, publisher)

	scheduler := app.NewScheduler(workflow, logger, cfg)
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	handler := api.NewHandler(workflow, logger)
	router := api.NewRouter(handler, cfg.AdminJWKSURL, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
