// Package overpass queries OpenStreetMap for resort boundaries and piste
// geometry through the Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/resilience"
	"github.com/powderlines/powderlines/pkg/geo"
)

const (
	// ProviderName identifies this provider in logs and stored records.
	ProviderName = "overpass"

	// DefaultBaseURL is the public Overpass interpreter endpoint.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"

	// Piste queries are heavy; the server-side limit is 180s so the HTTP
	// timeout needs headroom above it.
	pisteQueryTimeout = 200 * time.Second

	boundarySearchRadiusKM = 10
	pisteSearchRadiusKM    = 5
)

// ClientConfig holds configuration for the Overpass client.
type ClientConfig struct {
	// BaseURL is the interpreter endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the resilient HTTP client to use.
	// If nil, a default client with a long piste-query timeout is created.
	HTTPClient *resilience.Client

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Client queries the Overpass API.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Overpass client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = pisteQueryTimeout
		cfg.HTTPClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchBoundary looks up the resort's winter_sports polygon within 10km of
// the center, trying exact name match, then prefix match, then any polygon
// with the closest centroid. A nil boundary with nil error means none was
// found; trail filtering then falls back to the search radius.
func (c *Client) FetchBoundary(ctx context.Context, name string, lat, lon float64) ([][]float64, error) {
	box := geo.BoundingBox(lat, lon, boundarySearchRadiusKM)
	quoted := strings.ReplaceAll(name, `"`, `\"`)

	queries := []string{
		fmt.Sprintf(`[out:json][timeout:25];
(
  way["landuse"="winter_sports"]["name"="%[1]s"]%[2]s;
  relation["landuse"="winter_sports"]["name"="%[1]s"]%[2]s;
);
out geom;`, quoted, box),
	}

	if fields := strings.Fields(quoted); len(fields) > 0 {
		queries = append(queries, fmt.Sprintf(`[out:json][timeout:25];
(
  way["landuse"="winter_sports"]["name"~"%[1]s.*"]%[2]s;
  relation["landuse"="winter_sports"]["name"~"%[1]s.*"]%[2]s;
);
out geom;`, fields[0], box))
	}

	queries = append(queries, fmt.Sprintf(`[out:json][timeout:25];
(
  way["landuse"="winter_sports"]%[1]s;
  relation["landuse"="winter_sports"]%[1]s;
);
out geom;`, box))

	for i, query := range queries {
		elements, err := c.run(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Int("strategy", i+1).Msg("boundary query failed")
			continue
		}
		if len(elements) == 0 {
			continue
		}

		if ring := closestRing(elements, lat, lon); ring != nil {
			c.logger.Debug().
				Int("strategy", i+1).
				Int("points", len(ring)).
				Msg("resolved resort boundary")
			return ring, nil
		}
	}

	c.logger.Warn().Str("resort", name).Msg("no boundary found, radius filtering applies")
	return nil, nil
}

// FetchPistes returns all piste ways and relations within 5km of the center.
func (c *Client) FetchPistes(ctx context.Context, lat, lon float64) ([]Element, error) {
	box := geo.BoundingBox(lat, lon, pisteSearchRadiusKM)
	query := fmt.Sprintf(`[out:json][timeout:180];
(
  way["piste:type"]%[1]s;
  relation["piste:type"]%[1]s;
);
out geom;`, box)

	elements, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int("elements", len(elements)).Msg("fetched pistes")
	return elements, nil
}

func (c *Client) run(ctx context.Context, query string) ([]Element, error) {
	form := url.Values{"data": {query}}.Encode()

	resp, err := c.httpClient.Post(ctx, c.baseURL, "application/x-www-form-urlencoded", []byte(form))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Elements []Element `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fault.New(fault.TypeJSONError, fmt.Sprintf("decode overpass response: %v", err), c.baseURL)
	}
	return decoded.Elements, nil
}

// closestRing picks the element whose centroid is nearest the center and
// returns its closed ring, or nil when no element yields a usable polygon.
func closestRing(elements []Element, lat, lon float64) [][]float64 {
	var (
		best     [][]float64
		bestDist float64
	)

	for _, e := range elements {
		ring := geo.CloseRing(e.Ring())
		if len(ring) < 3 {
			continue
		}

		cLon, cLat := geo.Centroid(ring)
		d := geo.DistanceKM(lat, lon, cLat, cLon)
		if best == nil || d < bestDist {
			best = ring
			bestDist = d
		}
	}

	return best
}

// Element is one OSM way or relation from an Overpass response.
type Element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []Node            `json:"geometry"`
	Members  []Member          `json:"members"`
}

// Node is a single coordinate in an element geometry.
type Node struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Member is a relation member with its own geometry.
type Member struct {
	Role     string `json:"role"`
	Geometry []Node `json:"geometry"`
}

// Ring returns the element outline as [lon, lat] pairs: way geometry
// directly, relation outer members concatenated.
func (e Element) Ring() [][]float64 {
	var ring [][]float64

	switch e.Type {
	case "way":
		for _, n := range e.Geometry {
			ring = append(ring, []float64{n.Lon, n.Lat})
		}
	case "relation":
		for _, m := range e.Members {
			if m.Role != "outer" && m.Role != "" {
				continue
			}
			for _, n := range m.Geometry {
				ring = append(ring, []float64{n.Lon, n.Lat})
			}
		}
	}

	return ring
}
