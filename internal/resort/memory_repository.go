package resort

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	resorts     map[int64]*Resort
	conditions  map[int64][]Condition
	weather     map[int64][]Weather
	webcams     map[int64][]Webcam
	trails      map[int64][]Trail
	nextTrailID int64
}

// NewInMemoryRepository creates a new in-memory resort repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		resorts:    make(map[int64]*Resort),
		conditions: make(map[int64][]Condition),
		weather:    make(map[int64][]Weather),
		webcams:    make(map[int64][]Webcam),
		trails:     make(map[int64][]Trail),
	}
}

// SaveSnapshot stores one collection result. The resort row is created on
// first sight, later snapshots only touch UpdatedAt, and all appended rows
// share one timestamp.
func (r *InMemoryRepository) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := r.resorts[snap.Resort.ID]; ok {
		existing.UpdatedAt = now
	} else {
		res := snap.Resort
		res.CreatedAt = now
		res.UpdatedAt = now
		r.resorts[res.ID] = &res
	}

	cond := snap.Condition
	cond.ResortID = snap.Resort.ID
	cond.Timestamp = now
	cond.CreatedAt = now
	r.conditions[snap.Resort.ID] = append(r.conditions[snap.Resort.ID], cond)

	if snap.Weather != nil {
		w := *snap.Weather
		w.ResortID = snap.Resort.ID
		w.Timestamp = now
		r.weather[snap.Resort.ID] = append(r.weather[snap.Resort.ID], w)
	}

	for _, cam := range snap.Webcams {
		cam.ResortID = snap.Resort.ID
		cam.Timestamp = now
		r.webcams[snap.Resort.ID] = append(r.webcams[snap.Resort.ID], cam)
	}

	return nil
}

// SaveContact stores places enrichment on the resort row.
func (r *InMemoryRepository) SaveContact(_ context.Context, resortID int64, info *ContactInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resorts[resortID]
	if !ok {
		return ErrNotFound
	}

	res.Address = info.Address
	res.City = info.City
	res.ZipCode = info.ZipCode
	res.Phone = info.Phone
	res.Website = info.Website
	res.OpeningHours = info.OpeningHours
	res.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceTrails swaps the resort's trail set, updating the boundary ring
// when one is given.
func (r *InMemoryRepository) ReplaceTrails(_ context.Context, resortID int64, boundary [][]float64, trails []Trail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if boundary != nil {
		if res, ok := r.resorts[resortID]; ok {
			res.Boundary = boundary
			res.UpdatedAt = time.Now().UTC()
		}
	}

	stored := make([]Trail, len(trails))
	for i, t := range trails {
		r.nextTrailID++
		t.ID = r.nextTrailID
		t.ResortID = resortID
		stored[i] = t
	}
	r.trails[resortID] = stored
	return nil
}

// Disable soft-deletes a resort and returns its slug.
func (r *InMemoryRepository) Disable(_ context.Context, id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resorts[id]
	if !ok || !res.Enabled {
		return "", ErrNotFound
	}

	res.Enabled = false
	res.UpdatedAt = time.Now().UTC()
	return res.Slug, nil
}

// GetByID returns one enabled resort's assembled view.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resorts[id]
	if !ok || !res.Enabled {
		return nil, ErrNotFound
	}
	return r.assembleView(res), nil
}

// GetBySlug returns one enabled resort's assembled view.
func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.resorts {
		if res.Slug == slug && res.Enabled {
			return r.assembleView(res), nil
		}
	}
	return nil, ErrNotFound
}

// ListEnabled returns assembled views for every enabled resort, ordered
// by id.
func (r *InMemoryRepository) ListEnabled(_ context.Context) ([]*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var views []*View
	for _, res := range r.resorts {
		if res.Enabled {
			views = append(views, r.assembleView(res))
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ResortID < views[j].ResortID })
	return views, nil
}

// TrailsByID returns the stored trail set, empty when none collected or
// the resort is not enabled.
func (r *InMemoryRepository) TrailsByID(_ context.Context, id int64) ([]TrailView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resorts[id]
	if !ok || !res.Enabled {
		return nil, nil
	}
	return r.trailViews(id), nil
}

// TrailsBySlug returns the stored trail set, empty when none collected or
// the resort is not enabled.
func (r *InMemoryRepository) TrailsBySlug(_ context.Context, slug string) ([]TrailView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.resorts {
		if res.Slug == slug && res.Enabled {
			return r.trailViews(res.ID), nil
		}
	}
	return nil, nil
}

// CountEnabled returns the number of enabled resorts.
func (r *InMemoryRepository) CountEnabled(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, res := range r.resorts {
		if res.Enabled {
			count++
		}
	}
	return count, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(_ context.Context) error {
	return nil
}

// assembleView builds the read model the same way the SQL view join does:
// identity plus the latest condition and weather rows and the most recent
// observation per webcam. Caller must hold at least a read lock.
func (r *InMemoryRepository) assembleView(res *Resort) *View {
	v := &View{
		ResortID: res.ID,
		Name:     res.Name,
		Slug:     res.Slug,
		Location: res.Location,
		Lat:      res.Lat,
		Lon:      res.Lon,
	}
	if res.ElevationMin != nil && res.ElevationMax != nil {
		v.Elevation = &ElevationView{
			Min:      *res.ElevationMin,
			Max:      *res.ElevationMax,
			Vertical: *res.ElevationMax - *res.ElevationMin,
		}
	}

	if conds := r.conditions[res.ID]; len(conds) > 0 {
		c := conds[len(conds)-1]
		v.Status = c.Status
		v.NewSnow = c.NewSnow
		v.BaseDepth = c.BaseDepth
		v.LiftsOpen = c.LiftsOpen
		v.LiftsTotal = c.LiftsTotal
		v.TrailsOpen = c.TrailsOpen
		v.TrailsTotal = c.TrailsTotal
		v.Temperature = c.Temperature
		v.Extra = c.Extra
		v.DataSource = c.DataSource
		v.LastUpdate = c.Timestamp.UTC().Format(time.RFC3339)
	}

	if ws := r.weather[res.ID]; len(ws) > 0 {
		w := ws[len(ws)-1]
		v.Weather = &WeatherView{
			Current:             w.Current,
			FreezingLevel:       w.FreezingLevel,
			FreezingLevel24hAvg: w.FreezingLevel24hAvg,
			TempBase:            w.TempBase,
			TempMid:             w.TempMid,
			TempSummit:          w.TempSummit,
			Today: &TodayView{
				Sunrise: w.TodaySunrise,
				Sunset:  w.TodaySunset,
				TempMax: w.TodayTempMax,
				TempMin: w.TodayTempMin,
			},
			Snowfall24h:      w.Snowfall24h,
			Precipitation24h: w.Precipitation24h,
			AvgWindspeed24h:  w.AvgWindspeed24h,
			Hourly:           w.Hourly,
			Daily:            w.Daily,
			Source:           w.Source,
			LastUpdate:       w.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	if cams := r.webcams[res.ID]; len(cams) > 0 {
		latest := make(map[string]Webcam, len(cams))
		for _, cam := range cams {
			prev, ok := latest[cam.UUID]
			if !ok || !cam.Timestamp.Before(prev.Timestamp) {
				latest[cam.UUID] = cam
			}
		}
		uuids := make([]string, 0, len(latest))
		for uuid := range latest {
			uuids = append(uuids, uuid)
		}
		sort.Strings(uuids)
		for _, uuid := range uuids {
			cam := latest[uuid]
			v.Webcams = append(v.Webcams, WebcamView{
				UUID:         cam.UUID,
				Title:        cam.Title,
				ImageURL:     cam.ImageURL,
				ThumbnailURL: cam.ThumbnailURL,
				VideoURL:     cam.VideoURL,
				Type:         cam.Type,
				Featured:     cam.Featured,
				LastUpdated:  cam.LastUpdated,
			})
		}
	}

	if res.Address != nil || res.City != nil || res.ZipCode != nil ||
		res.Phone != nil || res.Website != nil || res.OpeningHours != nil {
		v.Contact = &ContactView{
			Address:      res.Address,
			City:         res.City,
			ZipCode:      res.ZipCode,
			Phone:        res.Phone,
			Website:      res.Website,
			OpeningHours: res.OpeningHours,
		}
	}

	return v
}

func (r *InMemoryRepository) trailViews(id int64) []TrailView {
	stored := r.trails[id]
	if len(stored) == 0 {
		return nil
	}
	views := make([]TrailView, len(stored))
	for i, t := range stored {
		views[i] = TrailView{
			ID:           t.ID,
			OSMID:        t.OSMID,
			OSMType:      t.OSMType,
			Name:         t.Name,
			Difficulty:   t.Difficulty,
			PisteType:    t.PisteType,
			Geometry:     t.Geometry,
			LengthMeters: t.LengthMeters,
			Lit:          t.Lit,
			Grooming:     t.Grooming,
			Width:        t.Width,
			Ref:          t.Ref,
		}
	}
	return views
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
