// Package mtnpowder fetches resort condition feeds from the MtnPowder API.
//
// MtnPowder exposes a single JSON feed per resort keyed by a numeric
// resort id. The feed mixes numeric and string encodings for the same
// field across resorts, so numeric values are decoded loosely and
// coerced downstream.
package mtnpowder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in logs and stored records.
	ProviderName = "mtnpowder"

	// DefaultBaseURL is the public MtnPowder feed endpoint.
	DefaultBaseURL = "https://www.mtnpowder.com/feed"
)

// ClientConfig holds configuration for the MtnPowder client.
type ClientConfig struct {
	// BaseURL is the feed endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the resilient HTTP client to use.
	// If nil, a default client is created.
	HTTPClient *resilience.Client

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Client fetches condition feeds from MtnPowder.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new MtnPowder client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
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

// FeedURL returns the feed URL for a resort. The same URL is recorded as
// the source of any condition built from the feed.
func (c *Client) FeedURL(sourceID string) string {
	return fmt.Sprintf("%s?resortId=%s", c.baseURL, url.QueryEscape(sourceID))
}

// Fetch retrieves the raw condition feed for a single resort.
func (c *Client) Fetch(ctx context.Context, sourceID string) (*Feed, error) {
	feedURL := c.FeedURL(sourceID)

	resp, err := c.httpClient.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fault.New(fault.TypeJSONError, fmt.Sprintf("decode feed: %v", err), feedURL)
	}

	c.logger.Debug().
		Str("source_id", sourceID).
		Str("operating_status", feed.OperatingStatus).
		Msg("fetched mtnpowder feed")

	return &feed, nil
}

// Feed is the raw MtnPowder payload for one resort. Fields that the feed
// encodes inconsistently (number, numeric string, or "--") are typed any
// and coerced by the normalizer.
type Feed struct {
	Name              string            `json:"Name"`
	OperatingStatus   string            `json:"OperatingStatus"`
	SnowReport        SnowReport        `json:"SnowReport"`
	CurrentConditions CurrentConditions `json:"CurrentConditions"`
}

// SnowReport carries lift, trail and snowfall figures.
type SnowReport struct {
	StormTotalCM    any `json:"StormTotalCM"`
	TotalOpenLifts  any `json:"TotalOpenLifts"`
	TotalLifts      any `json:"TotalLifts"`
	TotalOpenTrails any `json:"TotalOpenTrails"`
	TotalTrails     any `json:"TotalTrails"`
}

// CurrentConditions carries the base-area weather block.
type CurrentConditions struct {
	Base BaseConditions `json:"Base"`
}

// BaseConditions holds on-mountain readings at the base area.
// TemperatureC is a string in the feed and "--" when the sensor is offline.
type BaseConditions struct {
	TemperatureC any `json:"TemperatureC"`
}
