package models

import "github.com/powderlines/powderlines/internal/resort"

// TrailsResponse is the envelope for the per-resort trails endpoints.
// Exactly one of ResortID/Slug is set, matching the path the caller
// used. Filter fields render as JSON null when the query param was
// absent.
type TrailsResponse struct {
	ResortID        int64              `json:"resort_id,omitempty"`
	Slug            string             `json:"slug,omitempty"`
	TotalTrails     int                `json:"total_trails"`
	TotalLengthKM   float64            `json:"total_length_km"`
	DifficultyStats map[string]int     `json:"difficulty_stats"`
	TypeStats       map[string]int     `json:"type_stats"`
	FiltersApplied  TrailFilters       `json:"filters_applied"`
	Trails          []resort.TrailView `json:"trails"`
}

// TrailFilters echoes the filters the caller applied.
type TrailFilters struct {
	Type       *string `json:"type"`
	Difficulty *string `json:"difficulty"`
}
