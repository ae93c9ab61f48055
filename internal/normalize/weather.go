package normalize

import (
	"strings"

	"github.com/powderlines/powderlines/internal/provider/openmeteo"
	"github.com/powderlines/powderlines/internal/resort"
)

// weatherSource labels every weather row the normalizer produces.
const weatherSource = "Open-Meteo API"

// Forecast horizons carried into the stored record.
const (
	maxHourlyPoints = 80
	maxDailyPoints  = 8
)

// FromOpenMeteo shapes a raw forecast into the weather record for one
// resort. Current conditions come from the first hourly sample; the 24h
// aggregates require a full day of samples. Returns nil when the hourly
// series is empty, so callers can persist the condition row without one.
func FromOpenMeteo(desc resort.Descriptor, fc *openmeteo.Forecast) *resort.Weather {
	if fc == nil || len(fc.Hourly.Time) == 0 {
		return nil
	}
	h := fc.Hourly

	w := &resort.Weather{
		ResortID: desc.ID,
		Source:   weatherSource,
	}

	w.Current = resort.WeatherCurrent{
		Temperature:         f64At(h.Temperature2m, 0),
		ApparentTemperature: f64At(h.ApparentTemperature, 0),
		Humidity:            intAt(h.RelativeHumidity2m, 0),
		WindSpeed:           f64At(h.WindSpeed10m, 0),
		WindDirection:       f64At(h.WindDirection10m, 0),
	}
	if w.Current.WindDirection != nil {
		w.Current.WindCompass = Compass(*w.Current.WindDirection)
	}

	w.FreezingLevel = f64At(h.FreezingLevelHeight, 0)
	w.FreezingLevel24hAvg = mean24(h.FreezingLevelHeight)
	w.AvgWindspeed24h = mean24(h.WindSpeed10m)
	w.Snowfall24h = sum24(h.Snowfall)
	w.Precipitation24h = sum24(h.Precipitation)

	base, mid, summit := BandedTemperatures(profileAt(h, 0), desc.ElevationMin, desc.ElevationMax)
	w.TempBase = roundPtr(base)
	w.TempMid = roundPtr(mid)
	w.TempSummit = roundPtr(summit)

	n := len(h.Time)
	if n > maxHourlyPoints {
		n = maxHourlyPoints
	}
	w.Hourly = make([]resort.HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		p := resort.HourlyPoint{
			Time:                h.Time[i],
			Temperature:         f64At(h.Temperature2m, i),
			ApparentTemperature: f64At(h.ApparentTemperature, i),
			Humidity:            intAt(h.RelativeHumidity2m, i),
			WindSpeed:           f64At(h.WindSpeed10m, i),
			WindDirection:       f64At(h.WindDirection10m, i),
			FreezingLevel:       f64At(h.FreezingLevelHeight, i),
			WeatherCode:         intAt(h.WeatherCode, i),
			Snowfall:            f64At(h.Snowfall, i),
			Precipitation:       f64At(h.Precipitation, i),
		}
		b, m, s := BandedTemperatures(profileAt(h, i), desc.ElevationMin, desc.ElevationMax)
		p.TempBase, p.TempMid, p.TempSummit = roundPtr(b), roundPtr(m), roundPtr(s)
		w.Hourly = append(w.Hourly, p)
	}

	d := fc.Daily
	if len(d.Time) > 0 {
		w.TodaySunrise = strAt(d.Sunrise, 0)
		w.TodaySunset = strAt(d.Sunset, 0)
		w.TodayTempMax = f64At(d.Temperature2mMax, 0)
		w.TodayTempMin = f64At(d.Temperature2mMin, 0)
	}

	dn := len(d.Time)
	if dn > maxDailyPoints {
		dn = maxDailyPoints
	}
	for i := 0; i < dn; i++ {
		w.Daily = append(w.Daily, resort.DailyPoint{
			Date:             d.Time[i],
			TempMax:          f64At(d.Temperature2mMax, i),
			TempMin:          f64At(d.Temperature2mMin, i),
			PrecipitationSum: f64At(d.PrecipitationSum, i),
			SnowfallSum:      f64At(d.SnowfallSum, i),
			WindSpeedMax:     f64At(d.WindSpeed10mMax, i),
			Sunrise:          strAt(d.Sunrise, i),
			Sunset:           strAt(d.Sunset, i),
			WeatherCode:      dailyWeatherCode(h, d, i),
		})
	}

	return w
}

// dailyWeatherCode picks the day's representative code from the hourly
// noon sample. Days past the hourly horizon fall back to the daily code.
func dailyWeatherCode(h openmeteo.HourlySeries, d openmeteo.DailySeries, day int) *int {
	date := d.Time[day]
	noon := date + "T12:00"

	for i, t := range h.Time {
		if t == noon {
			if c := intAt(h.WeatherCode, i); c != nil {
				return c
			}
			break
		}
	}
	for i, t := range h.Time {
		if strings.HasPrefix(t, date) {
			if c := intAt(h.WeatherCode, i); c != nil {
				return c
			}
			break
		}
	}
	return intAt(d.WeatherCode, day)
}

// profileAt assembles the pressure-level temperature profile for one
// hourly sample, skipping levels the provider left null.
func profileAt(h openmeteo.HourlySeries, i int) []PressurePoint {
	levels := []struct {
		altitude float64
		series   []*float64
	}{
		{altitude1000hPa, h.Temperature1000hPa},
		{altitude925hPa, h.Temperature925hPa},
		{altitude850hPa, h.Temperature850hPa},
		{altitude700hPa, h.Temperature700hPa},
		{altitude500hPa, h.Temperature500hPa},
	}

	profile := make([]PressurePoint, 0, len(levels))
	for _, l := range levels {
		if v := f64At(l.series, i); v != nil {
			profile = append(profile, PressurePoint{AltitudeM: l.altitude, Temperature: *v})
		}
	}
	return profile
}

// mean24 averages the first 24 samples to one decimal, provided a full
// day is present.
func mean24(series []*float64) *float64 {
	if len(series) < 24 {
		return nil
	}
	var sum float64
	var count int
	for _, v := range series[:24] {
		if v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return f64Ptr(round1(sum / float64(count)))
}

// sum24 totals the first 24 samples to one decimal, provided a full day
// is present.
func sum24(series []*float64) *float64 {
	if len(series) < 24 {
		return nil
	}
	var sum float64
	var seen int
	for _, v := range series[:24] {
		if v != nil {
			sum += *v
			seen++
		}
	}
	if seen == 0 {
		return nil
	}
	return f64Ptr(round1(sum))
}

func roundPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return f64Ptr(round1(*p))
}

func f64At(series []*float64, i int) *float64 {
	if i >= len(series) || series[i] == nil {
		return nil
	}
	v := *series[i]
	return &v
}

func intAt(series []*int, i int) *int {
	if i >= len(series) || series[i] == nil {
		return nil
	}
	v := *series[i]
	return &v
}

func strAt(series []string, i int) string {
	if i >= len(series) {
		return ""
	}
	return series[i]
}
