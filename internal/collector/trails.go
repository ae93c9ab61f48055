package collector

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/overpass"
	"github.com/powderlines/powderlines/internal/resort"
	"github.com/powderlines/powderlines/pkg/geo"
)

// MapClient fetches resort boundaries and piste geometry from
// OpenStreetMap.
type MapClient interface {
	FetchBoundary(ctx context.Context, name string, lat, lon float64) ([][]float64, error)
	FetchPistes(ctx context.Context, lat, lon float64) ([]overpass.Element, error)
}

// maxTrailDistanceKM is how far a piste midpoint may sit from the resort
// center when no boundary polygon is known.
const maxTrailDistanceKM = 5

// TrailCollector imports each resort's boundary polygon and piste set
// from OpenStreetMap.
type TrailCollector struct {
	cfg    Config
	logger zerolog.Logger
	store  Store
	osm    MapClient
}

// TrailCollectorConfig wires the trail collector.
type TrailCollectorConfig struct {
	Config Config
	Logger zerolog.Logger
	Store  Store
	OSM    MapClient
}

// NewTrailCollector creates a trail collector.
func NewTrailCollector(cfg TrailCollectorConfig) *TrailCollector {
	return &TrailCollector{
		cfg:    cfg.Config.normalized(),
		logger: cfg.Logger,
		store:  cfg.Store,
		osm:    cfg.OSM,
	}
}

// Run imports trails for every given resort through the worker pool.
func (tc *TrailCollector) Run(ctx context.Context, resorts []resort.Descriptor) *RunResult {
	return runSweep(ctx, tc.logger, "trails", tc.cfg.Concurrency, resorts, func(ctx context.Context, desc resort.Descriptor) error {
		ctx, cancel := context.WithTimeout(ctx, tc.cfg.TrailTimeout)
		defer cancel()
		_, err := tc.CollectTrails(ctx, desc)
		return err
	})
}

// CollectTrails replaces one resort's stored trail set from OSM and
// returns how many trails were kept.
func (tc *TrailCollector) CollectTrails(ctx context.Context, desc resort.Descriptor) (int, error) {
	boundary, err := tc.osm.FetchBoundary(ctx, desc.Name, desc.Lat, desc.Lon)
	if err != nil {
		return 0, err
	}

	elements, err := tc.osm.FetchPistes(ctx, desc.Lat, desc.Lon)
	if err != nil {
		return 0, err
	}

	trails := trailsFromElements(desc, elements, boundary)

	if err := tc.store.SaveTrails(ctx, desc.ID, desc.Slug, boundary, trails); err != nil {
		return 0, fault.New(fault.TypeDatabaseSave, err.Error(), "")
	}

	tc.logger.Info().
		Str("resort", desc.Slug).
		Int("elements", len(elements)).
		Int("trails", len(trails)).
		Bool("boundary", len(boundary) > 0).
		Msg("trails imported")

	return len(trails), nil
}

// trailsFromElements converts piste elements to trails, keeping those
// inside the boundary polygon, or within maxTrailDistanceKM of the
// resort center when no polygon is known.
func trailsFromElements(desc resort.Descriptor, elements []overpass.Element, boundary [][]float64) []resort.Trail {
	trails := make([]resort.Trail, 0, len(elements))
	for _, el := range elements {
		line := el.Ring()
		if len(line) < 2 {
			continue
		}

		if len(boundary) >= 3 {
			if !geo.PolylineInPolygon(line, boundary) {
				continue
			}
		} else {
			mid := line[len(line)/2]
			if geo.DistanceKM(desc.Lat, desc.Lon, mid[1], mid[0]) > maxTrailDistanceKM {
				continue
			}
		}

		trails = append(trails, resort.Trail{
			ResortID:     desc.ID,
			OSMID:        strconv.FormatInt(el.ID, 10),
			OSMType:      el.Type,
			Name:         trailName(el),
			Difficulty:   tagOr(el.Tags, "piste:difficulty", resort.DifficultyUnknown),
			PisteType:    tagOr(el.Tags, "piste:type", "downhill"),
			Geometry:     line,
			LengthMeters: geo.LengthMeters(line),
			Lit:          litFlag(el.Tags),
			Grooming:     el.Tags["piste:grooming"],
			Width:        el.Tags["width"],
			Ref:          el.Tags["ref"],
		})
	}
	return trails
}

// trailName prefers the mapped name, falls back to the ref code, then to
// a synthetic name from the OSM id.
func trailName(el overpass.Element) string {
	if name := el.Tags["name"]; name != "" {
		return name
	}
	if ref := el.Tags["ref"]; ref != "" {
		return ref
	}
	return "Trail " + strconv.FormatInt(el.ID, 10)
}

func tagOr(tags map[string]string, key, fallback string) string {
	if v := tags[key]; v != "" {
		return v
	}
	return fallback
}

// litFlag reads the piste lighting tag. Absent tags stay unknown rather
// than defaulting to unlit.
func litFlag(tags map[string]string) *bool {
	v, ok := tags["piste:lit"]
	if !ok {
		v, ok = tags["lit"]
	}
	if !ok {
		return nil
	}
	lit := v == "yes"
	return &lit
}
