package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lumenlytics/creator-insights/internal/config"
	"github.com/lumenlytics/creator-insights/internal/database"
	"github.com/lumenlytics/creator-insights/internal/httpserver"
	"github.com/lumenlytics/creator-insights/internal/metrics"
	"github.com/lumenlytics/creator-insights/internal/middleware"
	"github.com/lumenlytics/creator-insights/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Optional .env for local development; ignore if absent
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to panic
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting Creator-Insights",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("insights")

	// PostgreSQL is optional: without it the in-memory store is used
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()
	} else {
		logger.Info("PostgreSQL disabled, using in-memory store")
	}

	// Redis backs the report-view cache
	var redis *database.RedisDB
	if cfg.Redis.Enabled {
		redis, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
	} else {
		logger.Info("Redis disabled, report cache off")
	}

	// ClickHouse mirrors tracking events for warehouse rollups
	var clickhouse *database.ClickHouseDB
	if cfg.ClickHouse.Enabled {
		clickhouse, err = database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		defer clickhouse.Close()

		sink := storage.NewClickHouseTrackingSink(clickhouse.Conn)
		if err := sink.EnsureTable(ctx); err != nil {
			logger.Fatal("failed to prepare tracking_events table", zap.Error(err))
		}
	}

	// Build dependencies
	deps := &httpserver.Dependencies{
		DB:         db,
		Redis:      redis,
		ClickHouse: clickhouse,
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
	}

	// Create HTTP server with all routes
	server := httpserver.NewServer(deps)

	// Build the initial snapshot so report views are served immediately.
	// A dirty store (dangling references, bad contracts) is fatal at boot.
	if _, err := server.Snapshots().Rebuild(ctx); err != nil {
		logger.Fatal("initial snapshot build failed", zap.Error(err))
	}

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> Logging -> RateLimit -> Auth -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	rateLimitMW.SetMetrics(m)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger)

	finalHandler := recoveryMW.Handler(
		loggingMW.Handler(
			rateLimitMW.Handler(
				authMW.Handler(server),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Start rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupIPLimiters()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Cancel main context to stop background goroutines
	cancel()

	logger.Info("server stopped")
}
