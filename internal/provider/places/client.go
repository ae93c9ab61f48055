// Package places resolves resort contact details through the Google Places
// API: a text search pins down the place id, then a details lookup returns
// address, phone, website, and opening hours.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/resilience"
	"github.com/powderlines/powderlines/internal/resort"
)

const (
	// ProviderName identifies this provider in logs.
	ProviderName = "places"

	// DefaultBaseURL is the Places API root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	// searchRadiusMeters bounds the text search around the resort center.
	searchRadiusMeters = 5000

	detailFields = "name,formatted_address,address_components,formatted_phone_number,international_phone_number,website,opening_hours"
)

// ClientConfig holds configuration for the Places client.
type ClientConfig struct {
	// APIKey is the Google Maps API key. Required.
	APIKey string

	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the resilient HTTP client to use.
	// If nil, a default client is created.
	HTTPClient *resilience.Client

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Client looks up places for contact enrichment.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Places client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FindContact searches for the resort near its coordinates and returns its
// contact details. Queries append "ski resort" to bias the search.
func (c *Client) FindContact(ctx context.Context, name string, lat, lon float64) (*resort.ContactInfo, error) {
	placeID, err := c.findPlaceID(ctx, name, lat, lon)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("resort", name).Str("place_id", placeID).Msg("resolved place id")

	return c.fetchDetails(ctx, placeID)
}

func (c *Client) findPlaceID(ctx context.Context, name string, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("query", name+" ski resort")
	params.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("radius", strconv.Itoa(searchRadiusMeters))
	params.Set("key", c.apiKey)

	searchURL := c.baseURL + "/textsearch/json?" + params.Encode()

	resp, err := c.httpClient.Get(ctx, searchURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fault.New(fault.TypeJSONError, fmt.Sprintf("decode text search: %v", err), searchURL)
	}

	if decoded.Status != "OK" || len(decoded.Results) == 0 {
		return "", fault.New(fault.TypeNoData, fmt.Sprintf("text search returned %s", decoded.Status), searchURL)
	}

	return decoded.Results[0].PlaceID, nil
}

func (c *Client) fetchDetails(ctx context.Context, placeID string) (*resort.ContactInfo, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("key", c.apiKey)

	detailsURL := c.baseURL + "/details/json?" + params.Encode()

	resp, err := c.httpClient.Get(ctx, detailsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fault.New(fault.TypeJSONError, fmt.Sprintf("decode place details: %v", err), detailsURL)
	}

	if decoded.Status != "OK" {
		return nil, fault.New(fault.TypeNoData, fmt.Sprintf("place details returned %s", decoded.Status), detailsURL)
	}

	return decoded.Result.toContactInfo(), nil
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string      `json:"status"`
	Result placeResult `json:"result"`
}

type placeResult struct {
	Name                     string             `json:"name"`
	FormattedAddress         string             `json:"formatted_address"`
	AddressComponents        []addressComponent `json:"address_components"`
	FormattedPhoneNumber     string             `json:"formatted_phone_number"`
	InternationalPhoneNumber string             `json:"international_phone_number"`
	Website                  string             `json:"website"`
	OpeningHours             *openingHours      `json:"opening_hours"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type openingHours struct {
	OpenNow     *bool                  `json:"open_now"`
	Periods     []resort.OpeningPeriod `json:"periods"`
	WeekdayText []string               `json:"weekday_text"`
}

func (r placeResult) toContactInfo() *resort.ContactInfo {
	info := &resort.ContactInfo{}

	if r.FormattedAddress != "" {
		info.Address = &r.FormattedAddress
	}
	for _, comp := range r.AddressComponents {
		switch {
		case hasType(comp.Types, "locality"):
			city := comp.LongName
			info.City = &city
		case hasType(comp.Types, "postal_code"):
			zip := comp.LongName
			info.ZipCode = &zip
		}
	}

	phone := r.FormattedPhoneNumber
	if phone == "" {
		phone = r.InternationalPhoneNumber
	}
	if phone != "" {
		info.Phone = &phone
	}
	if r.Website != "" {
		info.Website = &r.Website
	}

	if r.OpeningHours != nil {
		info.OpeningHours = &resort.OpeningHours{
			WeekdayText: r.OpeningHours.WeekdayText,
			Periods:     r.OpeningHours.Periods,
			OpenNow:     r.OpeningHours.OpenNow,
		}
	}

	return info
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
