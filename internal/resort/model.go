// Package resort defines the core domain: resort identity, condition and
// weather snapshots, webcams, and trail geometry.
package resort

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrNotFound      = errors.New("resort not found")
	ErrTrailNotFound = errors.New("trail not found")
)

// Status is the operational state of a resort.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPartial Status = "partial"
	StatusClosed  Status = "closed"
)

// Data sources understood by the collection pipeline.
const (
	SourceMtnPowder = "mtnpowder"
	SourceOnTheSnow = "onthesnow"
)

// Resort is the long-lived identity row. IDs are externally assigned in the
// registry and stable across runs.
type Resort struct {
	ID           int64
	Name         string
	Slug         string
	Location     string
	Lat          float64
	Lon          float64
	ElevationMin *int
	ElevationMax *int

	// Boundary is a closed ring of [lon, lat] pairs, or nil when the
	// polygon has not been collected yet.
	Boundary [][]float64

	// Contact info, filled by the places enrichment task.
	Address      *string
	City         *string
	ZipCode      *string
	Phone        *string
	Website      *string
	OpeningHours *OpeningHours

	// Provider routing.
	DataSource string
	SourceURL  *string
	SourceID   *string

	Enabled   bool
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OpeningHours mirrors the places provider's opening-hours block.
type OpeningHours struct {
	WeekdayText []string        `json:"weekday_text,omitempty"`
	Periods     []OpeningPeriod `json:"periods,omitempty"`
	OpenNow     *bool           `json:"open_now,omitempty"`
}

// OpeningPeriod is one open/close pair. Close is nil for always-open.
type OpeningPeriod struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// DayTime is a weekday (0=Sunday) plus a "HHMM" local time.
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// Condition is one time-stamped operational snapshot. Rows are append-only.
// Nil pointers mean the provider did not report the field.
type Condition struct {
	ID        int64
	ResortID  int64
	Timestamp time.Time

	Status      Status
	NewSnow     *float64 // cm, past 24h
	BaseDepth   *float64 // cm
	LiftsOpen   *int
	LiftsTotal  *int
	TrailsOpen  *int
	TrailsTotal *int
	Temperature *float64 // °C

	// Extra carries provider-specific leftovers (opening/closing dates,
	// summit depth) as an opaque blob.
	Extra map[string]any

	Source     string
	DataSource string
	CreatedAt  time.Time
}

// Extra blob keys written by the normalizer.
const (
	ExtraOpeningDate = "opening_date"
	ExtraClosingDate = "closing_date"
	ExtraSummitDepth = "summit_depth"
)

// Weather is one time-stamped meteorological snapshot with forecast
// sequences. Forecast times are local to the resort (no UTC offset).
type Weather struct {
	ID        int64
	ResortID  int64
	Timestamp time.Time

	Current WeatherCurrent

	FreezingLevel       *float64 // m
	FreezingLevel24hAvg *float64 // m

	// Temperatures interpolated at base, mid, and summit elevation.
	TempBase   *float64
	TempMid    *float64
	TempSummit *float64

	TodaySunrise string
	TodaySunset  string
	TodayTempMax *float64
	TodayTempMin *float64

	Snowfall24h      *float64 // cm
	Precipitation24h *float64 // mm
	AvgWindspeed24h  *float64 // km/h

	Hourly []HourlyPoint // up to 80 points
	Daily  []DailyPoint  // up to 8 points

	Source string
}

// WeatherCurrent is the current-conditions block.
type WeatherCurrent struct {
	Temperature         *float64 `json:"temperature,omitempty"`
	ApparentTemperature *float64 `json:"apparent_temperature,omitempty"`
	Humidity            *int     `json:"humidity,omitempty"`
	WindSpeed           *float64 `json:"windspeed,omitempty"`
	WindDirection       *float64 `json:"winddirection,omitempty"`
	WindCompass         string   `json:"winddirection_compass,omitempty"`
}

// HourlyPoint is one hourly forecast sample. Time is a local-time string
// exactly as the provider emitted it ("2006-01-02T15:04").
type HourlyPoint struct {
	Time                string   `json:"time"`
	Temperature         *float64 `json:"temperature,omitempty"`
	ApparentTemperature *float64 `json:"apparent_temperature,omitempty"`
	Humidity            *int     `json:"humidity,omitempty"`
	WindSpeed           *float64 `json:"windspeed,omitempty"`
	WindDirection       *float64 `json:"winddirection,omitempty"`
	FreezingLevel       *float64 `json:"freezing_level,omitempty"`
	WeatherCode         *int     `json:"weather_code,omitempty"`
	Snowfall            *float64 `json:"snowfall,omitempty"`
	Precipitation       *float64 `json:"precipitation,omitempty"`
	TempBase            *float64 `json:"temp_base,omitempty"`
	TempMid             *float64 `json:"temp_mid,omitempty"`
	TempSummit          *float64 `json:"temp_summit,omitempty"`
}

// DailyPoint is one daily forecast sample. Date is "2006-01-02" local.
type DailyPoint struct {
	Date             string   `json:"date"`
	TempMax          *float64 `json:"temp_max,omitempty"`
	TempMin          *float64 `json:"temp_min,omitempty"`
	PrecipitationSum *float64 `json:"precipitation_sum,omitempty"`
	SnowfallSum      *float64 `json:"snowfall_sum,omitempty"`
	WindSpeedMax     *float64 `json:"windspeed_max,omitempty"`
	Sunrise          string   `json:"sunrise,omitempty"`
	Sunset           string   `json:"sunset,omitempty"`
	WeatherCode      *int     `json:"weather_code,omitempty"`
}

// Webcam is one webcam observation. Rows are append-only; reads return the
// most recent row per UUID.
type Webcam struct {
	ID           int64
	ResortID     int64
	Timestamp    time.Time
	UUID         string
	Title        string
	ImageURL     string
	ThumbnailURL string
	VideoURL     string
	Type         string
	Featured     bool
	LastUpdated  string
	Source       string
}

// Trail difficulty grades, in ascending order of severity.
const (
	DifficultyNovice       = "novice"
	DifficultyEasy         = "easy"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyExpert       = "expert"
	DifficultyFreeride     = "freeride"
	DifficultyUnknown      = "unknown"
)

// Trail is one piste from the map-data source. Trails are replaced
// wholesale per resort on every trail collection.
type Trail struct {
	ID       int64
	ResortID int64

	OSMID   string
	OSMType string // way or relation

	Name       string
	Difficulty string
	PisteType  string

	// Geometry is an ordered [lon, lat] polyline.
	Geometry     [][]float64
	LengthMeters float64

	Lit      *bool
	Grooming string
	Width    string
	Ref      string
}

// Snapshot bundles everything one collection run produced for a resort.
// It is the unit of transactional persistence.
type Snapshot struct {
	Resort    Resort
	Condition Condition
	Weather   *Weather
	Webcams   []Webcam
}

// ContactInfo is the flat record produced by the places enrichment task.
type ContactInfo struct {
	Address      *string
	City         *string
	ZipCode      *string
	Phone        *string
	Website      *string
	OpeningHours *OpeningHours
}
