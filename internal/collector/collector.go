package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/normalize"
	"github.com/powderlines/powderlines/internal/provider/mtnpowder"
	"github.com/powderlines/powderlines/internal/provider/onthesnow"
	"github.com/powderlines/powderlines/internal/provider/openmeteo"
	"github.com/powderlines/powderlines/internal/quality"
	"github.com/powderlines/powderlines/internal/resort"
	"github.com/powderlines/powderlines/internal/telemetry"
)

// FeedClient fetches MtnPowder snow report feeds.
type FeedClient interface {
	Fetch(ctx context.Context, sourceID string) (*mtnpowder.Feed, error)
	FeedURL(sourceID string) string
}

// PageClient fetches and parses OnTheSnow resort pages.
type PageClient interface {
	Fetch(ctx context.Context, pageURL string) (*onthesnow.Page, error)
}

// ForecastClient fetches Open-Meteo forecasts.
type ForecastClient interface {
	Forecast(ctx context.Context, lat, lon float64) (*openmeteo.Forecast, error)
}

// Store is the slice of the resort service the collectors write through.
// Writes go through the service so caches are invalidated alongside the
// database.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *resort.Snapshot) error
	SaveTrails(ctx context.Context, id int64, slug string, boundary [][]float64, trails []resort.Trail) error
	SaveContact(ctx context.Context, id int64, slug string, info *resort.ContactInfo) error
	AllResorts(ctx context.Context) ([]*resort.View, error)
}

// Collector runs the snow report pipeline: primary feed, supplementary
// page, weather, then one transactional save per resort.
type Collector struct {
	cfg       Config
	logger    zerolog.Logger
	store     Store
	feeds     FeedClient
	pages     PageClient
	forecasts ForecastClient
	metrics   *telemetry.PipelineMetrics
}

// CollectorConfig wires the snow report collector.
type CollectorConfig struct {
	Config    Config
	Logger    zerolog.Logger
	Store     Store
	Feeds     FeedClient
	Pages     PageClient
	Forecasts ForecastClient

	// Metrics records per-provider call durations; optional.
	Metrics *telemetry.PipelineMetrics
}

// NewCollector creates a snow report collector.
func NewCollector(cfg CollectorConfig) *Collector {
	return &Collector{
		cfg:       cfg.Config.normalized(),
		logger:    cfg.Logger,
		store:     cfg.Store,
		feeds:     cfg.Feeds,
		pages:     cfg.Pages,
		forecasts: cfg.Forecasts,
		metrics:   cfg.Metrics,
	}
}

// RunResult summarizes one sweep.
type RunResult struct {
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Duration     time.Duration    `json:"duration"`
	TotalResorts int              `json:"total_resorts"`
	Successful   int              `json:"successful"`
	Failed       int              `json:"failed"`
	Failures     []Failure        `json:"failures,omitempty"`
	Quality      *quality.Summary `json:"quality,omitempty"`
}

// Run collects every given resort through the worker pool and reports
// the sweep outcome. With Config.QualityCheck set, the stored records
// are scored afterwards and the summary rides along on the result.
func (c *Collector) Run(ctx context.Context, resorts []resort.Descriptor) *RunResult {
	result := runSweep(ctx, c.logger, "collect", c.cfg.Concurrency, resorts, func(ctx context.Context, desc resort.Descriptor) error {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.ResortTimeout)
		defer cancel()
		return c.CollectResort(ctx, desc)
	})

	if c.cfg.QualityCheck {
		if _, summary, err := c.QualityCheck(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("post-sweep quality check failed")
		} else {
			result.Quality = &summary
		}
	}
	return result
}

// CollectResort runs the full pipeline for one resort. The primary
// provider must succeed; supplementary data and weather degrade to
// whatever the primary returned.
func (c *Collector) CollectResort(ctx context.Context, desc resort.Descriptor) error {
	snap, err := c.fetchPrimary(ctx, desc)
	if err != nil {
		return err
	}

	c.mergeSupplementary(ctx, desc, snap)
	c.attachWeather(ctx, desc, snap)

	if err := c.store.SaveSnapshot(ctx, snap); err != nil {
		return fault.New(fault.TypeDatabaseSave, err.Error(), "")
	}
	return nil
}

func (c *Collector) fetchPrimary(ctx context.Context, desc resort.Descriptor) (*resort.Snapshot, error) {
	switch desc.DataSource {
	case resort.SourceMtnPowder:
		start := time.Now()
		feed, err := c.feeds.Fetch(ctx, desc.SourceID)
		c.metrics.RecordProviderCall("mtnpowder", "feed", time.Since(start), err)
		if err != nil {
			return nil, err
		}
		snap := normalize.FromMtnPowder(desc, feed, c.feeds.FeedURL(desc.SourceID))
		return &snap, nil

	case resort.SourceOnTheSnow:
		start := time.Now()
		page, err := c.pages.Fetch(ctx, desc.SourceURL)
		c.metrics.RecordProviderCall("onthesnow", "page", time.Since(start), err)
		if err != nil {
			return nil, err
		}
		snap := normalize.FromOnTheSnow(desc, page, desc.SourceURL)
		return &snap, nil

	default:
		return nil, fault.New(fault.TypeNoData, fmt.Sprintf("no adapter for data source %q", desc.DataSource), "")
	}
}

// mergeSupplementary backfills webcams and missing counts from the
// resort's OnTheSnow page.
func (c *Collector) mergeSupplementary(ctx context.Context, desc resort.Descriptor, snap *resort.Snapshot) {
	if !desc.HasSupplementary() {
		return
	}

	start := time.Now()
	page, err := c.pages.Fetch(ctx, desc.OnTheSnowURL)
	c.metrics.RecordProviderCall("onthesnow", "supplementary", time.Since(start), err)
	if err != nil {
		c.logger.Warn().Err(err).Str("resort", desc.Slug).Msg("supplementary page fetch failed")
		return
	}
	normalize.MergeSupplementary(snap, page, desc.OnTheSnowURL)
}

// attachWeather fetches the forecast for the resort coordinates.
func (c *Collector) attachWeather(ctx context.Context, desc resort.Descriptor, snap *resort.Snapshot) {
	start := time.Now()
	fc, err := c.forecasts.Forecast(ctx, desc.Lat, desc.Lon)
	c.metrics.RecordProviderCall("openmeteo", "forecast", time.Since(start), err)
	if err != nil {
		c.logger.Warn().Err(err).Str("resort", desc.Slug).Msg("weather fetch failed")
		return
	}
	snap.Weather = normalize.FromOpenMeteo(desc, fc)
}

// QualityCheck scores every stored resort view and logs the aggregate.
func (c *Collector) QualityCheck(ctx context.Context) ([]quality.Report, quality.Summary, error) {
	views, err := c.store.AllResorts(ctx)
	if err != nil {
		return nil, quality.Summary{}, fmt.Errorf("loading resorts for quality check: %w", err)
	}

	reports, summary := quality.CheckAll(views)

	c.logger.Info().
		Int("total", summary.Total).
		Int("success", summary.Success).
		Int("warning", summary.Warning).
		Int("error", summary.Error).
		Float64("avg_score", summary.AvgScore).
		Msg("quality check completed")

	return reports, summary, nil
}
