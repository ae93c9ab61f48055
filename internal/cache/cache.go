// Package cache provides the string-keyed read cache in front of the
// persistence layer: Redis when REDIS_URL is set, an in-process store
// otherwise so the API runs in development without extra services.
package cache

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// TTLs per key family.
const (
	DefaultTTL = 5 * time.Minute
	SummaryTTL = 10 * time.Minute
	TrailsTTL  = time.Hour
)

// Store is a string-keyed KV with per-entry TTL. Deletes are idempotent.
type Store interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

// FromEnv builds the Store selected by the environment: Redis when
// REDIS_URL is set, in-memory otherwise.
func FromEnv(ctx context.Context, logger zerolog.Logger) (Store, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		logger.Info().Str("component", "cache").Msg("using redis cache")
		return NewRedis(ctx, url)
	}
	logger.Info().Str("component", "cache").Msg("REDIS_URL not set, using in-memory cache")
	return NewMemory(), nil
}
