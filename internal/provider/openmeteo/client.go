// Package openmeteo fetches mountain weather forecasts from Open-Meteo.
//
// Each forecast is assembled from two requests: a 4-day hourly series that
// includes pressure-level temperatures for elevation interpolation, and an
// 8-day daily series. The daily request is best-effort; hourly data alone
// still produces a usable forecast.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in logs and stored records.
	ProviderName = "openmeteo"

	// DefaultBaseURL is the free forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultCustomerBaseURL is the paid endpoint used when an API key is set.
	DefaultCustomerBaseURL = "https://customer-api.open-meteo.com/v1/forecast"

	hourlyForecastDays = 4
	dailyForecastDays  = 8
)

// Pressure levels requested for elevation interpolation.
var hourlyVariables = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"wind_speed_10m",
	"wind_direction_10m",
	"freezing_level_height",
	"weather_code",
	"snowfall",
	"precipitation",
	"temperature_1000hPa",
	"temperature_925hPa",
	"temperature_850hPa",
	"temperature_700hPa",
	"temperature_500hPa",
}

var dailyVariables = []string{
	"sunrise",
	"sunset",
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"snowfall_sum",
	"wind_speed_10m_max",
	"weather_code",
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// APIKey enables the paid customer endpoint. Optional; the free tier
	// works without a key but gets a small delay before each call to stay
	// under its rate limits.
	APIKey string

	// BaseURL overrides the forecast endpoint. Defaults to the customer
	// endpoint when APIKey is set, the free endpoint otherwise.
	BaseURL string

	// HTTPClient is the resilient HTTP client to use.
	// If nil, a default client is created.
	HTTPClient *resilience.Client

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Client fetches forecasts from Open-Meteo.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		if cfg.APIKey != "" {
			cfg.BaseURL = DefaultCustomerBaseURL
		} else {
			cfg.BaseURL = DefaultBaseURL
		}
	}
	if cfg.HTTPClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.InitialJitter = false
		cfg.HTTPClient = resilience.NewClient(clientCfg)
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

// Forecast fetches the hourly and daily series for a coordinate. When the
// daily request fails the hourly-only forecast is returned with a warning;
// an hourly failure fails the whole call.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	hourlyURL := c.buildURL(lat, lon, url.Values{
		"hourly":        {strings.Join(hourlyVariables, ",")},
		"forecast_days": {strconv.Itoa(hourlyForecastDays)},
	})

	var hourlyResp hourlyResponse
	if err := c.fetch(ctx, hourlyURL, &hourlyResp); err != nil {
		return nil, err
	}

	forecast := &Forecast{
		Latitude:  hourlyResp.Latitude,
		Longitude: hourlyResp.Longitude,
		Timezone:  hourlyResp.Timezone,
		Elevation: hourlyResp.Elevation,
		Hourly:    hourlyResp.Hourly,
	}

	dailyURL := c.buildURL(lat, lon, url.Values{
		"daily":         {strings.Join(dailyVariables, ",")},
		"forecast_days": {strconv.Itoa(dailyForecastDays)},
	})

	var dailyResp dailyResponse
	if err := c.fetch(ctx, dailyURL, &dailyResp); err != nil {
		c.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("daily forecast failed, keeping hourly only")
		return forecast, nil
	}
	forecast.Daily = dailyResp.Daily

	c.logger.Debug().
		Int("hourly_samples", len(forecast.Hourly.Time)).
		Int("daily_samples", len(forecast.Daily.Time)).
		Msg("fetched forecast")

	return forecast, nil
}

func (c *Client) buildURL(lat, lon float64, extra url.Values) string {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("timezone", "auto")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context, fetchURL string, out any) error {
	// The free tier throttles aggressively; spacing calls out keeps a full
	// registry sweep under its limits.
	if c.apiKey == "" {
		if err := sleepJitter(ctx); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Get(ctx, fetchURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.New(fault.TypeJSONError, fmt.Sprintf("decode forecast: %v", err), fetchURL)
	}
	return nil
}

// sleepJitter sleeps a uniform 1–2s, honoring context cancellation.
func sleepJitter(ctx context.Context) error {
	d := time.Second + time.Duration(rand.Int63n(int64(time.Second))) //nolint:gosec // jitter, not crypto
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Forecast is the combined raw payload from both requests. Daily is empty
// when the daily request failed.
type Forecast struct {
	Latitude  float64
	Longitude float64
	Timezone  string
	Elevation float64
	Hourly    HourlySeries
	Daily     DailySeries
}

// HourlySeries holds parallel arrays keyed by Time. Entries are nil where
// the model has no value.
type HourlySeries struct {
	Time                []string   `json:"time"`
	Temperature2m       []*float64 `json:"temperature_2m"`
	ApparentTemperature []*float64 `json:"apparent_temperature"`
	RelativeHumidity2m  []*int     `json:"relative_humidity_2m"`
	WindSpeed10m        []*float64 `json:"wind_speed_10m"`
	WindDirection10m    []*float64 `json:"wind_direction_10m"`
	FreezingLevelHeight []*float64 `json:"freezing_level_height"`
	WeatherCode         []*int     `json:"weather_code"`
	Snowfall            []*float64 `json:"snowfall"`
	Precipitation       []*float64 `json:"precipitation"`
	Temperature1000hPa  []*float64 `json:"temperature_1000hPa"`
	Temperature925hPa   []*float64 `json:"temperature_925hPa"`
	Temperature850hPa   []*float64 `json:"temperature_850hPa"`
	Temperature700hPa   []*float64 `json:"temperature_700hPa"`
	Temperature500hPa   []*float64 `json:"temperature_500hPa"`
}

// DailySeries holds parallel arrays keyed by Time (a "2006-01-02" date).
type DailySeries struct {
	Time             []string   `json:"time"`
	Sunrise          []string   `json:"sunrise"`
	Sunset           []string   `json:"sunset"`
	Temperature2mMax []*float64 `json:"temperature_2m_max"`
	Temperature2mMin []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	SnowfallSum      []*float64 `json:"snowfall_sum"`
	WindSpeed10mMax  []*float64 `json:"wind_speed_10m_max"`
	WeatherCode      []*int     `json:"weather_code"`
}

type hourlyResponse struct {
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Timezone  string       `json:"timezone"`
	Elevation float64      `json:"elevation"`
	Hourly    HourlySeries `json:"hourly"`
}

type dailyResponse struct {
	Daily DailySeries `json:"daily"`
}
