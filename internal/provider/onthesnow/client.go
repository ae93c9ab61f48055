// Package onthesnow scrapes resort condition pages from OnTheSnow.
//
// OnTheSnow renders resort pages with Next.js, which embeds the full page
// state as JSON inside a <script id="__NEXT_DATA__"> island. The client
// fetches the HTML with desktop browser headers and decodes that island
// rather than parsing the rendered markup.
package onthesnow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/resilience"
)

// ProviderName identifies this provider in logs and stored records.
const ProviderName = "onthesnow"

// ClientConfig holds configuration for the OnTheSnow client.
type ClientConfig struct {
	// HTTPClient is the resilient HTTP client to use.
	// If nil, a default client is created.
	HTTPClient *resilience.Client

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Client scrapes resort pages from OnTheSnow.
type Client struct {
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OnTheSnow client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Fetch retrieves and decodes the resort page at pageURL. The pageURL comes
// from the registry (source_url for primary resorts, onthesnow_url for
// supplementary enrichment).
func (c *Client) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	resp, err := c.httpClient.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fault.New(fault.TypeNoData, fmt.Sprintf("parse page: %v", err), pageURL)
	}

	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fault.New(fault.TypeNoData, "__NEXT_DATA__ not found in page", pageURL)
	}

	var page Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, fault.New(fault.TypeJSONError, fmt.Sprintf("decode __NEXT_DATA__: %v", err), pageURL)
	}

	c.logger.Debug().
		Str("url", pageURL).
		Str("title", page.Props.PageProps.FullResort.Title).
		Msg("fetched onthesnow page")

	return &page, nil
}

// Page is the decoded __NEXT_DATA__ island.
type Page struct {
	Props struct {
		PageProps PageProps `json:"pageProps"`
	} `json:"props"`
}

// PageProps carries the two blocks the pipeline reads.
type PageProps struct {
	FullResort   FullResort   `json:"fullResort"`
	ShortWeather ShortWeather `json:"shortWeather"`
}

// FullResort is the resort state block. Pointer fields distinguish a
// reported zero from an absent value.
type FullResort struct {
	Title     string     `json:"title"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Snow      Snow       `json:"snow"`
	Lifts     OpenTotal  `json:"lifts"`
	Runs      OpenTotal  `json:"runs"`
	Status    StatusInfo `json:"status"`
	Webcams   []Webcam   `json:"webcams"`
}

// Snow carries depth figures in centimeters.
type Snow struct {
	Base   *float64 `json:"base"`
	Summit *float64 `json:"summit"`
	Last24 *float64 `json:"last24"`
}

// OpenTotal is an open/total counter pair, shared by lifts and runs.
type OpenTotal struct {
	Open  *int `json:"open"`
	Total *int `json:"total"`
}

// StatusInfo carries the season state. OpenFlag is 0 for fully open, 1 for
// partially open, anything else (or absent) for closed.
type StatusInfo struct {
	OpenFlag    *int   `json:"openFlag"`
	OpeningDate string `json:"openingDate"`
	ClosingDate string `json:"closingDate"`
}

// Webcam is one webcam entry from the page state.
type Webcam struct {
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	Image       string `json:"image"`
	Thumbnail   string `json:"thumbnail"`
	Video       string `json:"video"`
	Type        string `json:"type"`
	Featured    bool   `json:"featured"`
	LastUpdated string `json:"lastUpdated"`
}

// ShortWeather is the compact weather strip rendered at the top of the page.
type ShortWeather struct {
	Temp TempRange `json:"temp"`
}

// TempRange is a min/max pair in °C.
type TempRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}
