// Package models defines the response envelopes served by the
// powderlines API. List endpoints wrap the resort views in a
// `{"resorts": [...], "metadata": {...}}` envelope whose metadata block
// varies per endpoint; detail endpoints return the view bare.
package models

import "github.com/powderlines/powderlines/internal/resort"

// Point is a geographic coordinate echoed back in metadata blocks.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ResortsResponse is the envelope for the full and summary listings.
type ResortsResponse struct {
	Resorts  []*resort.View `json:"resorts"`
	Metadata ListMeta       `json:"metadata"`
}

// ListMeta carries the listing count and generation time.
type ListMeta struct {
	TotalResorts int    `json:"total_resorts"`
	Timestamp    string `json:"timestamp"`
}

// OpenResortsResponse is the envelope for the open-resorts listing.
type OpenResortsResponse struct {
	Resorts  []*resort.View `json:"resorts"`
	Metadata OpenMeta       `json:"metadata"`
}

// OpenMeta counts resorts whose status is open or partial.
type OpenMeta struct {
	TotalOpen int    `json:"total_open"`
	Timestamp string `json:"timestamp"`
}

// SearchResponse is the envelope for name/location search.
type SearchResponse struct {
	Resorts  []*resort.View `json:"resorts"`
	Metadata SearchMeta     `json:"metadata"`
}

// SearchMeta echoes the (lowercased) query back to the caller.
type SearchMeta struct {
	TotalFound int         `json:"total_found"`
	Query      SearchQuery `json:"query"`
}

// SearchQuery is the pair of search terms applied.
type SearchQuery struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// NearbyResponse is the envelope for the radius search. Views carry a
// `distance` field, sorted ascending.
type NearbyResponse struct {
	Resorts  []*resort.View `json:"resorts"`
	Metadata NearbyMeta     `json:"metadata"`
}

// NearbyMeta echoes the search center and radius.
type NearbyMeta struct {
	TotalFound int     `json:"total_found"`
	Center     Point   `json:"center"`
	RadiusKM   float64 `json:"radius_km"`
}

// DisableResponse acknowledges an admin soft-delete.
type DisableResponse struct {
	Status   string `json:"status"`
	ResortID int64  `json:"resort_id"`
}

// StatusDisabled is the acknowledged state of a soft-deleted resort.
const StatusDisabled = "disabled"
