package resort

import (
	"encoding/json"
	"fmt"
	"os"
)

// Descriptor is one resort entry in the registry file. The registry is the
// source of truth for which resorts exist and how each one is collected.
type Descriptor struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Location         string  `json:"location"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	ElevationMin     *int    `json:"elevation_min,omitempty"`
	ElevationMax     *int    `json:"elevation_max,omitempty"`
	DataSource       string  `json:"data_source"`
	SourceURL        string  `json:"source_url,omitempty"`
	SourceID         string  `json:"source_id,omitempty"`
	OnTheSnowURL     string  `json:"onthesnow_url,omitempty"`
	OnTheSnowEnabled bool    `json:"onthesnow_enabled,omitempty"`
	Enabled          bool    `json:"enabled"`
}

// HasSupplementary reports whether the onthesnow supplementary adapter
// applies: the resort is routed to another primary but still has an
// onthesnow page for webcams and count backfill.
func (d Descriptor) HasSupplementary() bool {
	return d.DataSource != SourceOnTheSnow && d.OnTheSnowEnabled && d.OnTheSnowURL != ""
}

// Identity converts the descriptor to the Resort identity row written on
// every collection.
func (d Descriptor) Identity() Resort {
	r := Resort{
		ID:           d.ID,
		Name:         d.Name,
		Slug:         d.Slug,
		Location:     d.Location,
		Lat:          d.Lat,
		Lon:          d.Lon,
		ElevationMin: d.ElevationMin,
		ElevationMax: d.ElevationMax,
		DataSource:   d.DataSource,
		Enabled:      d.Enabled,
	}
	if d.SourceURL != "" {
		r.SourceURL = &d.SourceURL
	}
	if d.SourceID != "" {
		r.SourceID = &d.SourceID
	}
	return r
}

// Registry is the parsed, validated resort registry.
type Registry struct {
	Resorts []Descriptor `json:"resorts"`
}

// LoadRegistry reads and validates the registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses and validates registry JSON. Unknown data sources,
// duplicate ids, and duplicate slugs fail the load.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(reg.Resorts) == 0 {
		return nil, fmt.Errorf("registry has no resorts")
	}

	seenIDs := make(map[int64]struct{}, len(reg.Resorts))
	seenSlugs := make(map[string]struct{}, len(reg.Resorts))

	for i, d := range reg.Resorts {
		if d.ID <= 0 {
			return nil, fmt.Errorf("registry entry %d: missing or invalid id", i)
		}
		if _, dup := seenIDs[d.ID]; dup {
			return nil, fmt.Errorf("registry entry %d: duplicate id %d", i, d.ID)
		}
		seenIDs[d.ID] = struct{}{}

		if d.Name == "" {
			return nil, fmt.Errorf("resort %d: missing name", d.ID)
		}
		if d.Slug == "" {
			return nil, fmt.Errorf("resort %d: missing slug", d.ID)
		}
		if _, dup := seenSlugs[d.Slug]; dup {
			return nil, fmt.Errorf("resort %d: duplicate slug %q", d.ID, d.Slug)
		}
		seenSlugs[d.Slug] = struct{}{}

		if d.Lat < -90 || d.Lat > 90 || d.Lon < -180 || d.Lon > 180 {
			return nil, fmt.Errorf("resort %d: coordinates out of range (%f, %f)", d.ID, d.Lat, d.Lon)
		}

		switch d.DataSource {
		case SourceMtnPowder:
			if d.SourceID == "" {
				return nil, fmt.Errorf("resort %d: mtnpowder requires source_id", d.ID)
			}
		case SourceOnTheSnow:
			if d.SourceURL == "" {
				return nil, fmt.Errorf("resort %d: onthesnow requires source_url", d.ID)
			}
		default:
			return nil, fmt.Errorf("resort %d: unknown data_source %q", d.ID, d.DataSource)
		}
	}

	return &reg, nil
}

// Enabled returns the descriptors eligible for collection runs.
func (r *Registry) Enabled() []Descriptor {
	out := make([]Descriptor, 0, len(r.Resorts))
	for _, d := range r.Resorts {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// ByID looks up a descriptor by resort id.
func (r *Registry) ByID(id int64) (Descriptor, bool) {
	for _, d := range r.Resorts {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
