// Package main provides the entrypoint for the powderlines API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api"
	"github.com/powderlines/powderlines/internal/api/middleware"
	"github.com/powderlines/powderlines/internal/cache"
	"github.com/powderlines/powderlines/internal/database"
	"github.com/powderlines/powderlines/internal/resort"
	"github.com/powderlines/powderlines/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "powderlines-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting powderlines API")

	// Get configuration from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	pipelineMetrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pipeline metrics")
		os.Exit(1)
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize the read cache: Redis when configured, in-process otherwise
	store, err := cache.FromEnv(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer store.Close() //nolint:errcheck // close error is not actionable at exit

	// Initialize resort repository and service
	resortService := resort.NewService(resort.ServiceConfig{
		Repo:    resort.NewPostgresRepository(pool),
		Cache:   store,
		Logger:  log,
		Metrics: pipelineMetrics,
	})
	log.Info().Msg("resort service initialized")

	adminKey := os.Getenv("ADMIN_API_KEY")
	if adminKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set - admin endpoints are disabled")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Resorts:     resortService,
		AdminAPIKey: adminKey,
	})

	server := api.NewServer(api.ServerConfig{
		Port:    port,
		Handler: router,
		Logger:  log,
	})

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
