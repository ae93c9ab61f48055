package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powderlines/powderlines/internal/quality"
	"github.com/powderlines/powderlines/internal/resort"
)

func healthyView() *resort.View {
	newSnow, baseDepth := 12.0, 150.0
	liftsOpen, liftsTotal := 10, 14
	trailsOpen, trailsTotal := 45, 60
	temp, wind := -4.5, 12.0
	humidity := 78
	freezing := 2100.0
	tempBase, tempSummit := -2.1, -8.4

	return &resort.View{
		ResortID:    1,
		Name:        "Whistler Blackcomb",
		Slug:        "whistler-blackcomb",
		Status:      resort.StatusOpen,
		DataSource:  resort.SourceMtnPowder,
		NewSnow:     &newSnow,
		BaseDepth:   &baseDepth,
		LiftsOpen:   &liftsOpen,
		LiftsTotal:  &liftsTotal,
		TrailsOpen:  &trailsOpen,
		TrailsTotal: &trailsTotal,
		Elevation:   &resort.ElevationView{Min: 652, Max: 2284, Vertical: 1632},
		Weather: &resort.WeatherView{
			Current: resort.WeatherCurrent{
				Temperature: &temp,
				Humidity:    &humidity,
				WindSpeed:   &wind,
			},
			FreezingLevel: &freezing,
			TempBase:      &tempBase,
			TempSummit:    &tempSummit,
			Hourly:        make([]resort.HourlyPoint, 48),
			Daily:         make([]resort.DailyPoint, 7),
		},
	}
}

func scoredChecks(rep quality.Report) []quality.FieldCheck {
	var out []quality.FieldCheck
	for _, c := range rep.Checks {
		if !c.Informational {
			out = append(out, c)
		}
	}
	return out
}

func findCheck(t *testing.T, rep quality.Report, field string) quality.FieldCheck {
	t.Helper()
	for _, c := range rep.Checks {
		if c.Field == field {
			return c
		}
	}
	t.Fatalf("no check for field %q", field)
	return quality.FieldCheck{}
}

func TestCheck_AllHealthy(t *testing.T) {
	rep := quality.Check(healthyView())

	assert.Equal(t, quality.LevelSuccess, rep.Status)
	assert.Equal(t, 100.0, rep.Score)
	assert.Equal(t, 15, rep.Successes)
	assert.Zero(t, rep.Warnings)
	assert.Zero(t, rep.Errors)
	assert.Len(t, scoredChecks(rep), 15)

	// Forecasts and elevation are reported but never scored.
	assert.Len(t, rep.Checks, 18)
	assert.True(t, findCheck(t, rep, "elevation").Informational)
}

func TestCheck_MissingCriticalFieldFailsResort(t *testing.T) {
	v := healthyView()
	v.DataSource = ""

	rep := quality.Check(v)

	assert.Equal(t, quality.LevelError, rep.Status)
	assert.Equal(t, 1, rep.Errors)
	assert.Equal(t, 93.3, rep.Score)

	c := findCheck(t, rep, "data_source")
	assert.Equal(t, quality.LevelError, c.Level)
	assert.True(t, c.Critical)
}

func TestCheck_ClosedResortZerosAreExpected(t *testing.T) {
	v := healthyView()
	v.Status = resort.StatusClosed
	zero := 0.0
	zeroInt := 0
	v.NewSnow = &zero
	v.BaseDepth = &zero
	v.LiftsOpen = &zeroInt
	v.TrailsOpen = &zeroInt

	rep := quality.Check(v)

	for _, field := range []string{"new_snow", "base_depth", "lifts_open", "trails_open"} {
		c := findCheck(t, rep, field)
		assert.Equal(t, quality.LevelSuccess, c.Level, field)
		assert.Equal(t, "resort not open", c.Message, field)
	}
	assert.Equal(t, quality.LevelSuccess, rep.Status)
	assert.Equal(t, 100.0, rep.Score)
}

func TestCheck_ZeroTotalsWarnEvenWhenClosed(t *testing.T) {
	v := healthyView()
	v.Status = resort.StatusClosed
	zeroInt := 0
	v.LiftsTotal = &zeroInt
	v.TrailsTotal = &zeroInt

	rep := quality.Check(v)

	assert.Equal(t, quality.LevelWarning, findCheck(t, rep, "lifts_total").Level)
	assert.Equal(t, quality.LevelWarning, findCheck(t, rep, "trails_total").Level)
	assert.Equal(t, 2, rep.Warnings)
}

func TestCheck_ImplausibleTemperature(t *testing.T) {
	v := healthyView()
	hot := 99.0
	v.Weather.Current.Temperature = &hot

	rep := quality.Check(v)

	c := findCheck(t, rep, "weather.current.temperature")
	assert.Equal(t, quality.LevelError, c.Level)
	assert.False(t, c.Critical)

	// One non-critical error out of fifteen checks does not fail the
	// resort.
	assert.Equal(t, quality.LevelSuccess, rep.Status)
}

func TestCheck_ZeroTemperatureIsFine(t *testing.T) {
	v := healthyView()
	zero := 0.0
	v.Weather.Current.Temperature = &zero
	v.Weather.TempBase = &zero

	rep := quality.Check(v)

	assert.Equal(t, quality.LevelSuccess, findCheck(t, rep, "weather.current.temperature").Level)
	assert.Equal(t, quality.LevelSuccess, findCheck(t, rep, "weather.temp_base").Level)
}

func TestCheck_NegativeCounterIsError(t *testing.T) {
	v := healthyView()
	bad := -5.0
	v.BaseDepth = &bad

	rep := quality.Check(v)

	c := findCheck(t, rep, "base_depth")
	assert.Equal(t, quality.LevelError, c.Level)
	assert.Equal(t, "negative value", c.Message)
	assert.Equal(t, quality.LevelSuccess, rep.Status)
}

func TestCheck_MissingWeatherDegradesToWarning(t *testing.T) {
	v := healthyView()
	v.Weather = nil

	rep := quality.Check(v)

	// Six missing weather fields out of fifteen crosses the warning
	// threshold.
	assert.Equal(t, quality.LevelWarning, rep.Status)
	assert.Equal(t, 6, rep.Warnings)
	assert.Equal(t, 60.0, rep.Score)
}

func TestCheckAll_Summary(t *testing.T) {
	degraded := healthyView()
	degraded.ResortID = 2
	degraded.Weather = nil

	reports, sum := quality.CheckAll([]*resort.View{healthyView(), degraded})

	require.Len(t, reports, 2)
	assert.Equal(t, quality.Summary{
		Total:    2,
		Success:  1,
		Warning:  1,
		Error:    0,
		AvgScore: 80.0,
	}, sum)
}

func TestCheckAll_Empty(t *testing.T) {
	reports, sum := quality.CheckAll(nil)
	assert.Empty(t, reports)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.AvgScore)
}
