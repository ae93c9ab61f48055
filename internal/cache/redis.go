package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption tweaks the underlying go-redis options.
type RedisOption func(*redis.Options)

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) RedisOption {
	return func(o *redis.Options) { o.PoolSize = n }
}

// WithDialTimeout sets the dial timeout.
func WithDialTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.DialTimeout = d }
}

// WithReadTimeout sets the per-command read timeout.
func WithReadTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

// Redis is the Redis-backed Store.
type Redis struct {
	rdb *redis.Client
}

var _ Store = (*Redis)(nil)

// NewRedis connects to the Redis at url (redis:// or rediss://) and
// verifies the connection.
func NewRedis(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}

	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ro.DialTimeout == 0 {
		ro.DialTimeout = 2 * time.Second
	}
	if ro.ReadTimeout == 0 {
		ro.ReadTimeout = time.Second
	}
	if ro.WriteTimeout == 0 {
		ro.WriteTimeout = time.Second
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (r *Redis) Close() error {
	if err := r.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
