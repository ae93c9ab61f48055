package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/powderlines/powderlines/internal/telemetry"

// PipelineMetrics holds instruments for the collection pipeline and the
// read-path cache. All methods are safe on a nil receiver so callers can
// run without telemetry wired.
type PipelineMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of upstream provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Number of read-path cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Number of read-path cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

// RecordProviderCall records one upstream adapter call.
func (m *PipelineMetrics) RecordProviderCall(provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context: provider calls outlive request contexts.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a read served from cache under the given key prefix.
func (m *PipelineMetrics) RecordCacheHit(prefix string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("cache.key_prefix", prefix)))
}

// RecordCacheMiss records a read that fell through to the database.
func (m *PipelineMetrics) RecordCacheMiss(prefix string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("cache.key_prefix", prefix)))
}
