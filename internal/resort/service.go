package resort

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/cache"
	"github.com/powderlines/powderlines/internal/telemetry"
	"github.com/powderlines/powderlines/pkg/geo"
)

// DefaultNearbyRadiusKM is the nearby search radius when none is given.
const DefaultNearbyRadiusKM = 50

// ServiceConfig holds the dependencies of the resort service.
type ServiceConfig struct {
	// Repo is the persistence layer.
	Repo Repository

	// Cache fronts all reads.
	Cache cache.Store

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records cache hit rates; optional.
	Metrics *telemetry.PipelineMetrics
}

// Service layers the read cache and the opening-date status rewrite over
// the repository. Writes go through it too, so cache invalidation stays
// paired with the write that makes the keys stale.
type Service struct {
	repo    Repository
	cache   cache.Store
	logger  zerolog.Logger
	metrics *telemetry.PipelineMetrics
}

// NewService creates a new resort service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{repo: cfg.Repo, cache: cfg.Cache, logger: cfg.Logger, metrics: cfg.Metrics}
}

// SaveSnapshot persists one collection result and drops the cache keys
// it makes stale. Cache failures are logged, not returned: the database
// is the source of truth and stale keys expire by TTL anyway.
func (s *Service) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	s.invalidate(ctx, cache.ConditionKeys(snap.Resort.ID, snap.Resort.Slug)...)
	return nil
}

// SaveTrails replaces a resort's trail set and boundary ring.
func (s *Service) SaveTrails(ctx context.Context, id int64, slug string, boundary [][]float64, trails []Trail) error {
	if err := s.repo.ReplaceTrails(ctx, id, boundary, trails); err != nil {
		return err
	}
	s.invalidate(ctx, cache.TrailKeys(id, slug)...)
	return nil
}

// SaveContact stores places enrichment for a resort.
func (s *Service) SaveContact(ctx context.Context, id int64, slug string, info *ContactInfo) error {
	if err := s.repo.SaveContact(ctx, id, info); err != nil {
		return err
	}
	s.invalidate(ctx, cache.ConditionKeys(id, slug)...)
	return nil
}

// Disable soft-deletes a resort and clears every cache key touching it.
func (s *Service) Disable(ctx context.Context, id int64) error {
	slug, err := s.repo.Disable(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.AllKeys(id, slug)...)
	return nil
}

// ResortByID returns one resort's full record.
func (s *Service) ResortByID(ctx context.Context, id int64) (*View, error) {
	return s.view(ctx, cache.ResortKey(id), func(ctx context.Context) (*View, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// ResortBySlug returns one resort's full record.
func (s *Service) ResortBySlug(ctx context.Context, slug string) (*View, error) {
	return s.view(ctx, cache.ResortSlugKey(slug), func(ctx context.Context) (*View, error) {
		return s.repo.GetBySlug(ctx, slug)
	})
}

func (s *Service) view(ctx context.Context, key string, load func(context.Context) (*View, error)) (*View, error) {
	var cached View
	if s.cacheGet(ctx, key, &cached) {
		ApplyStatusRewrite(&cached, time.Now())
		return &cached, nil
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, v, cache.DefaultTTL)
	ApplyStatusRewrite(v, time.Now())
	return v, nil
}

// AllResorts returns full records for every enabled resort.
func (s *Service) AllResorts(ctx context.Context) ([]*View, error) {
	var cached []*View
	if s.cacheGet(ctx, cache.AllResortsKey(), &cached) {
		rewriteAll(cached)
		return cached, nil
	}

	views, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cache.AllResortsKey(), views, cache.DefaultTTL)
	rewriteAll(views)
	return views, nil
}

// Summaries returns every enabled resort without forecast arrays and
// webcams.
func (s *Service) Summaries(ctx context.Context) ([]*View, error) {
	var cached []*View
	if s.cacheGet(ctx, cache.SummaryKey(), &cached) {
		rewriteAll(cached)
		return cached, nil
	}

	full, err := s.AllResorts(ctx)
	if err != nil {
		return nil, err
	}
	sums := make([]*View, len(full))
	for i, v := range full {
		sums[i] = v.Summary()
	}
	s.cacheSet(ctx, cache.SummaryKey(), sums, cache.SummaryTTL)
	return sums, nil
}

// OpenResorts returns summaries of resorts that are open or partially
// open. The filter runs after the status rewrite, so a resort inside its
// opening window counts as open even when the provider said otherwise.
func (s *Service) OpenResorts(ctx context.Context) ([]*View, error) {
	sums, err := s.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]*View, 0, len(sums))
	for _, v := range sums {
		if v.Status == StatusOpen || v.Status == StatusPartial {
			open = append(open, v)
		}
	}
	return open, nil
}

// Search returns resorts whose name or location contains the given
// fragments, case-insensitively. Either filter alone is enough to match.
func (s *Service) Search(ctx context.Context, name, location string) ([]*View, error) {
	all, err := s.AllResorts(ctx)
	if err != nil {
		return nil, err
	}

	nameQ := strings.ToLower(strings.TrimSpace(name))
	locQ := strings.ToLower(strings.TrimSpace(location))

	matches := make([]*View, 0, len(all))
	for _, v := range all {
		byName := nameQ != "" && strings.Contains(strings.ToLower(v.Name), nameQ)
		byLocation := locQ != "" && strings.Contains(strings.ToLower(v.Location), locQ)
		if byName || byLocation {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

// Nearby returns resorts within radiusKM of the given point, closest
// first, with Distance filled in km.
func (s *Service) Nearby(ctx context.Context, lat, lon, radiusKM float64) ([]*View, error) {
	all, err := s.AllResorts(ctx)
	if err != nil {
		return nil, err
	}

	nearby := make([]*View, 0, len(all))
	for _, v := range all {
		if v.Lat == 0 && v.Lon == 0 {
			continue
		}
		d := geo.DistanceKM(lat, lon, v.Lat, v.Lon)
		if d > radiusKM {
			continue
		}
		d = math.Round(d*100) / 100
		v.Distance = &d
		nearby = append(nearby, v)
	}
	sort.Slice(nearby, func(i, j int) bool { return *nearby[i].Distance < *nearby[j].Distance })
	return nearby, nil
}

// TrailsByID returns the stored trail set for one resort.
func (s *Service) TrailsByID(ctx context.Context, id int64) ([]TrailView, error) {
	return s.trails(ctx, cache.TrailsKey(id), func(ctx context.Context) ([]TrailView, error) {
		return s.repo.TrailsByID(ctx, id)
	})
}

// TrailsBySlug returns the stored trail set for one resort.
func (s *Service) TrailsBySlug(ctx context.Context, slug string) ([]TrailView, error) {
	return s.trails(ctx, cache.TrailsSlugKey(slug), func(ctx context.Context) ([]TrailView, error) {
		return s.repo.TrailsBySlug(ctx, slug)
	})
}

func (s *Service) trails(ctx context.Context, key string, load func(context.Context) ([]TrailView, error)) ([]TrailView, error) {
	var cached []TrailView
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	trails, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if len(trails) > 0 {
		s.cacheSet(ctx, key, trails, cache.TrailsTTL)
	}
	return trails, nil
}

// Health reports database reachability and the enabled resort count.
func (s *Service) Health(ctx context.Context) (int, error) {
	if err := s.repo.Ping(ctx); err != nil {
		return 0, err
	}
	return s.repo.CountEnabled(ctx)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	if !ok {
		s.metrics.RecordCacheMiss(keyPrefix(key))
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, ignoring")
		return false
	}
	s.metrics.RecordCacheHit(keyPrefix(key))
	return true
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

func rewriteAll(views []*View) {
	now := time.Now()
	for _, v := range views {
		ApplyStatusRewrite(v, now)
	}
}
