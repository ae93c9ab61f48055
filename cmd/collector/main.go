// Package main provides the entrypoint for the powderlines collection
// worker. It runs one-shot sweeps from the CLI or consumes collection
// jobs from Pub/Sub with --subscribe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/cache"
	"github.com/powderlines/powderlines/internal/collector"
	"github.com/powderlines/powderlines/internal/database"
	"github.com/powderlines/powderlines/internal/provider/mtnpowder"
	"github.com/powderlines/powderlines/internal/provider/onthesnow"
	"github.com/powderlines/powderlines/internal/provider/openmeteo"
	"github.com/powderlines/powderlines/internal/provider/overpass"
	"github.com/powderlines/powderlines/internal/provider/places"
	"github.com/powderlines/powderlines/internal/resort"
	"github.com/powderlines/powderlines/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const defaultRegistryPath = "configs/resorts.json"

func main() {
	all := flag.Bool("all", false, "include disabled resorts in the sweep")
	resortID := flag.Int64("resort-id", 0, "collect a single resort by id")
	job := flag.String("job", collector.JobConditions, "job to run: conditions, trails, contacts, or quality_check")
	withQuality := flag.Bool("quality", false, "score stored records after a conditions sweep")
	workers := flag.Int("workers", 0, "resorts processed in parallel (default 10)")
	registryPath := flag.String("registry", "", "path to the resort registry (overrides REGISTRY_PATH)")
	subscribe := flag.Bool("subscribe", false, "consume jobs from Pub/Sub instead of running once")
	flag.Parse()

	const serviceName = "powderlines-collector"

	// Setup structured logging. Every line of one run shares a run id so
	// interleaved sweeps stay separable in aggregated logs.
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Str("run_id", "run_"+uuid.New().String()[:22]).
		Logger()

	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting powderlines collector")

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
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

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pipeline metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Load the resort registry
	path := *registryPath
	if path == "" {
		path = os.Getenv("REGISTRY_PATH")
	}
	if path == "" {
		path = defaultRegistryPath
	}
	registry, err := resort.LoadRegistry(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to load registry")
	}
	log.Info().
		Str("path", path).
		Int("resorts", len(registry.Resorts)).
		Int("enabled", len(registry.Enabled())).
		Msg("registry loaded")

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

	// Writes go through the resort service so cache keys are invalidated
	// alongside the rows they mirror.
	store, err := cache.FromEnv(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer store.Close() //nolint:errcheck // close error is not actionable at exit

	svc := resort.NewService(resort.ServiceConfig{
		Repo:    resort.NewPostgresRepository(pool),
		Cache:   store,
		Logger:  log,
		Metrics: metrics,
	})

	// Provider clients ship their own retry, circuit breaker, and timeout
	// defaults; only credentials come from the environment.
	feeds := mtnpowder.NewClient(mtnpowder.ClientConfig{Logger: log})
	pages := onthesnow.NewClient(onthesnow.ClientConfig{Logger: log})
	forecasts := openmeteo.NewClient(openmeteo.ClientConfig{
		APIKey: os.Getenv("OPENMETEO_API_KEY"),
		Logger: log,
	})
	osm := overpass.NewClient(overpass.ClientConfig{Logger: log})
	directory := places.NewClient(places.ClientConfig{
		APIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		Logger: log,
	})

	sweepCfg := collector.DefaultConfig()
	if *workers > 0 {
		sweepCfg.Concurrency = *workers
	}
	sweepCfg.QualityCheck = *withQuality

	snow := collector.NewCollector(collector.CollectorConfig{
		Config:    sweepCfg,
		Logger:    log,
		Store:     svc,
		Feeds:     feeds,
		Pages:     pages,
		Forecasts: forecasts,
		Metrics:   metrics,
	})
	trails := collector.NewTrailCollector(collector.TrailCollectorConfig{
		Config: sweepCfg,
		Logger: log,
		Store:  svc,
		OSM:    osm,
	})
	contacts := collector.NewContactCollector(collector.ContactCollectorConfig{
		Config: sweepCfg,
		Logger: log,
		Store:  svc,
		Places: directory,
	})

	if *subscribe {
		runSubscriber(ctx, log, registry, snow, trails, contacts)
		return
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *job == collector.JobQuality {
		if _, _, err := snow.QualityCheck(runCtx); err != nil {
			log.Fatal().Err(err).Msg("quality check failed")
		}
		return
	}

	targets, err := resolveTargets(registry, *all, *resortID)
	if err != nil {
		log.Fatal().Err(err).Msg("nothing to collect")
	}

	var result *collector.RunResult
	switch *job {
	case collector.JobConditions:
		result = snow.Run(runCtx, targets)
	case collector.JobTrails:
		result = trails.Run(runCtx, targets)
	case collector.JobContacts:
		result = contacts.Run(runCtx, targets)
	default:
		log.Fatal().Str("job", *job).Msg("unknown job")
	}

	// A completed sweep exits 0 even when resorts failed; the failure
	// ledger in the logs is the signal. Non-zero exits are reserved for
	// dying before any resort was attempted.
	log.Info().
		Str("job", *job).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("run finished")
}

// resolveTargets picks the resorts a one-shot run covers.
func resolveTargets(registry *resort.Registry, all bool, resortID int64) ([]resort.Descriptor, error) {
	if resortID != 0 {
		desc, ok := registry.ByID(resortID)
		if !ok {
			return nil, fmt.Errorf("resort %d not in registry", resortID)
		}
		return []resort.Descriptor{desc}, nil
	}
	if all {
		return registry.Resorts, nil
	}
	targets := registry.Enabled()
	if len(targets) == 0 {
		return nil, fmt.Errorf("registry has no enabled resorts")
	}
	return targets, nil
}

// runSubscriber blocks consuming collection jobs until SIGINT/SIGTERM.
func runSubscriber(ctx context.Context, log zerolog.Logger, registry *resort.Registry,
	snow *collector.Collector, trails *collector.TrailCollector, contacts *collector.ContactCollector,
) {
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required with --subscribe")
	}

	handler, err := collector.NewPubSubHandler(ctx, collector.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Registry:         registry,
		Collector:        snow,
		Trails:           trails,
		Contacts:         contacts,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close() //nolint:errcheck // close error is not actionable at exit

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := handler.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("pubsub receive failed")
	}
	log.Info().Msg("subscriber stopped")
}
