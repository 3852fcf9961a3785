package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fieldvoice/ivr-platform/internal/api/router"
	appconfig "github.com/fieldvoice/ivr-platform/internal/config"
	"github.com/fieldvoice/ivr-platform/internal/http/handlers"
	"github.com/fieldvoice/ivr-platform/internal/ivr"
	"github.com/fieldvoice/ivr-platform/internal/observability/metrics"
	"github.com/fieldvoice/ivr-platform/internal/reports"
	"github.com/fieldvoice/ivr-platform/internal/session"
	"github.com/fieldvoice/ivr-platform/internal/voice"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

func main() {
	// Local development convenience; the file is absent in deployments.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting ivr-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		cache = redis.NewClient(opts)
		if err := cache.Ping(context.Background()).Err(); err != nil {
			// The label resolver degrades to SQL-only when Redis is down.
			logger.Warn("redis unreachable, label cache disabled", "error", err)
		}
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	callMetrics := metrics.NewCallMetrics(registry)

	// Stores and domain services
	graphStore := ivr.NewStore(db)
	sessionStore := session.NewStore(db)
	labels := voice.NewLabelResolver(db, cache, cfg.LabelCacheTTL, cfg.AudioBaseURL, logger)
	aggregator := reports.NewAggregator(db, sessionStore, labels, logger)
	retriever := reports.NewRetriever(db, sessionStore, labels, logger)

	voiceHandler := handlers.NewVoiceHandler(
		graphStore, sessionStore, aggregator, retriever, labels, callMetrics, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		Voice:          voiceHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
