/**
 * @description
 * This is the main entry point for the subscription-api. It wires together
 * configuration, the database pool, repositories, services, the reminder
 * workflow runner, the cron scheduler and the HTTP router, then starts the
 * server and waits for a shutdown signal.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/subtrack/subscription-api/internal/api"
	"github.com/subtrack/subscription-api/internal/app"
	"github.com/subtrack/subscription-api/internal/config"
	"github.com/subtrack/subscription-api/internal/mailer"
	"github.com/subtrack/subscription-api/internal/store"
	"github.com/subtrack/subscription-api/internal/workflow"
	"github.com/subtrack/subscription-api/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database pool + embedded migrations.
	dbpool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// RabbitMQ producer carries rendered reminder emails to the mail worker.
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	logger.Info("RabbitMQ producer connected")

	// Repositories.
	subscriptions := store.NewSubscriptionRepository(dbpool)
	users := store.NewUserRepository(dbpool)
	tokens := store.NewTokenRepository(dbpool)
	runs := store.NewWorkflowRepository(dbpool)

	// Application layers.
	reminderMailer := mailer.New(mailer.NewAMQPSender(producer), cfg.EmailFrom, logger)
	engine := workflow.NewEngine(subscriptions, runs, reminderMailer, logger)
	runner := workflow.NewRunner(runs, engine, logger)

	subscriptionService := app.NewService(subscriptions, runs, logger)
	authService := app.NewAuthService(users, tokens, cfg.JWTSecret, cfg.JWTExpiresIn, logger)

	jobs := app.NewJobs(tokens, subscriptions, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)

	handler := api.NewHandler(subscriptionService)
	authHandler := api.NewAuthHandler(authService)
	limiter := api.NewRateLimiter(5, 30)
	router := api.NewRouter(handler, authHandler, authService, limiter)

	// Background workers.
	go runner.Run(ctx)
	scheduler.Start()

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

	// Wait for an OS signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
