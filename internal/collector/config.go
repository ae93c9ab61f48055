// Package collector implements the pipelines that keep resort data
// fresh: the snow report sweep, OpenStreetMap trail imports, contact
// enrichment, and the Pub/Sub consumer that triggers them.
package collector

import "time"

// Config holds tuning shared by the collection sweeps.
type Config struct {
	// Concurrency is the number of resorts processed in parallel.
	// Default: 10
	Concurrency int

	// ResortTimeout bounds the snow report pipeline for one resort.
	// Default: 2m
	ResortTimeout time.Duration

	// TrailTimeout bounds the trail import for one resort. Overpass
	// queries run far longer than feed fetches.
	// Default: 5m
	TrailTimeout time.Duration

	// QualityCheck scores the stored records after a conditions sweep
	// and attaches the summary to the run result.
	// Default: false
	QualityCheck bool
}

// DefaultConfig returns the default sweep configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:   10,
		ResortTimeout: 2 * time.Minute,
		TrailTimeout:  5 * time.Minute,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.ResortTimeout <= 0 {
		c.ResortTimeout = def.ResortTimeout
	}
	if c.TrailTimeout <= 0 {
		c.TrailTimeout = def.TrailTimeout
	}
	return c
}
