package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the in-process Store used when no Redis is configured.
type Memory struct {
	cache *gocache.Cache
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-process store. Expired entries are swept every
// ten minutes.
func NewMemory() *Memory {
	return &Memory{
		cache: gocache.New(DefaultTTL, 10*time.Minute),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Delete(key)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
