package resort

import "math"

// View is the assembled read model for one resort: identity joined with
// the latest condition, weather, and webcam rows. Views are what the
// cache stores and the API serves, so every field must survive a JSON
// round-trip.
type View struct {
	ResortID  int64          `json:"resort_id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Location  string         `json:"location,omitempty"`
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	Elevation *ElevationView `json:"elevation,omitempty"`

	Status      Status         `json:"status,omitempty"`
	NewSnow     *float64       `json:"new_snow,omitempty"`
	BaseDepth   *float64       `json:"base_depth,omitempty"`
	LiftsOpen   *int           `json:"lifts_open,omitempty"`
	LiftsTotal  *int           `json:"lifts_total,omitempty"`
	TrailsOpen  *int           `json:"trails_open,omitempty"`
	TrailsTotal *int           `json:"trails_total,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	LastUpdate  string         `json:"last_update,omitempty"`
	DataSource  string         `json:"data_source,omitempty"`

	Weather *WeatherView `json:"weather,omitempty"`
	Webcams []WebcamView `json:"webcams,omitempty"`
	Contact *ContactView `json:"contact,omitempty"`

	// Distance is set by the nearby search only.
	Distance *float64 `json:"distance,omitempty"`
}

// ElevationView is only present when both bounds are known.
type ElevationView struct {
	Min      int `json:"min"`
	Max      int `json:"max"`
	Vertical int `json:"vertical"`
}

// WeatherView is the latest weather row shaped for responses.
type WeatherView struct {
	Current             WeatherCurrent `json:"current"`
	FreezingLevel       *float64       `json:"freezing_level_current,omitempty"`
	FreezingLevel24hAvg *float64       `json:"freezing_level_24h_avg,omitempty"`
	TempBase            *float64       `json:"temp_base,omitempty"`
	TempMid             *float64       `json:"temp_mid,omitempty"`
	TempSummit          *float64       `json:"temp_summit,omitempty"`
	Today               *TodayView     `json:"today,omitempty"`
	Snowfall24h         *float64       `json:"snowfall_24h,omitempty"`
	Precipitation24h    *float64       `json:"precipitation_24h,omitempty"`
	AvgWindspeed24h     *float64       `json:"avg_windspeed_24h,omitempty"`
	Hourly              []HourlyPoint  `json:"hourly_forecast,omitempty"`
	Daily               []DailyPoint   `json:"forecast_7d,omitempty"`
	Source              string         `json:"source,omitempty"`
	LastUpdate          string         `json:"last_update,omitempty"`
}

// TodayView groups today's sun and temperature extremes.
type TodayView struct {
	Sunrise string   `json:"sunrise,omitempty"`
	Sunset  string   `json:"sunset,omitempty"`
	TempMax *float64 `json:"temp_max,omitempty"`
	TempMin *float64 `json:"temp_min,omitempty"`
}

// WebcamView is the most recent observation of one webcam.
type WebcamView struct {
	UUID         string `json:"webcam_uuid"`
	Title        string `json:"title,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	Type         string `json:"type,omitempty"`
	Featured     bool   `json:"featured"`
	LastUpdated  string `json:"last_updated,omitempty"`
}

// ContactView is the places enrichment block, present once collected.
type ContactView struct {
	Address      *string       `json:"address,omitempty"`
	City         *string       `json:"city,omitempty"`
	ZipCode      *string       `json:"zip_code,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	Website      *string       `json:"website,omitempty"`
	OpeningHours *OpeningHours `json:"opening_hours,omitempty"`
}

// TrailView is one stored trail shaped for responses.
type TrailView struct {
	ID           int64       `json:"id"`
	OSMID        string      `json:"osm_id,omitempty"`
	OSMType      string      `json:"osm_type,omitempty"`
	Name         string      `json:"name,omitempty"`
	Difficulty   string      `json:"difficulty,omitempty"`
	PisteType    string      `json:"piste_type,omitempty"`
	Geometry     [][]float64 `json:"geometry,omitempty"`
	LengthMeters float64     `json:"length_meters"`
	Lit          *bool       `json:"lit,omitempty"`
	Grooming     string      `json:"grooming,omitempty"`
	Width        string      `json:"width,omitempty"`
	Ref          string      `json:"ref,omitempty"`
}

// Summary returns a copy without the heavy payload: forecast arrays and
// webcams are dropped, everything else is kept.
func (v *View) Summary() *View {
	s := *v
	s.Webcams = nil
	if v.Weather != nil {
		w := *v.Weather
		w.Hourly = nil
		w.Daily = nil
		s.Weather = &w
	}
	return &s
}

// TrailStats aggregates a trail list for the trails endpoint: counts per
// difficulty and per piste type, plus total length in km rounded to two
// decimals.
func TrailStats(trails []TrailView) (difficulty, pisteType map[string]int, totalLengthKM float64) {
	difficulty = make(map[string]int)
	pisteType = make(map[string]int)

	var meters float64
	for _, t := range trails {
		d := t.Difficulty
		if d == "" {
			d = DifficultyUnknown
		}
		p := t.PisteType
		if p == "" {
			p = "unknown"
		}
		difficulty[d]++
		pisteType[p]++
		meters += t.LengthMeters
	}
	totalLengthKM = math.Round(meters/10) / 100
	return difficulty, pisteType, totalLengthKM
}

// FilterTrails keeps trails matching the given piste type and difficulty.
// Empty filter values match everything.
func FilterTrails(trails []TrailView, pisteType, difficulty string) []TrailView {
	if pisteType == "" && difficulty == "" {
		return trails
	}
	out := make([]TrailView, 0, len(trails))
	for _, t := range trails {
		if pisteType != "" && t.PisteType != pisteType {
			continue
		}
		if difficulty != "" && t.Difficulty != difficulty {
			continue
		}
		out = append(out, t)
	}
	return out
}
