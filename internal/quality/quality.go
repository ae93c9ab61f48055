// Package quality scores assembled resort views for completeness. Each
// view is graded field by field; the per-resort score is the share of
// checks that passed, and a resort only fails outright when a critical
// identity field is broken.
package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/powderlines/powderlines/internal/resort"
)

// Level classifies one check outcome.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// problemRatioWarning is the share of non-success checks above which a
// resort's overall status degrades to warning.
const problemRatioWarning = 0.30

// Plausible air temperature bounds in °C. Values outside are treated as
// sensor noise rather than data.
const (
	minPlausibleTemp = -40
	maxPlausibleTemp = 40
)

// FieldCheck is the outcome of checking one field.
type FieldCheck struct {
	Field   string `json:"field"`
	Level   Level  `json:"level"`
	Message string `json:"message,omitempty"`

	// Critical marks the identity fields whose failure fails the resort.
	Critical bool `json:"critical,omitempty"`

	// Informational checks are reported but excluded from scoring.
	Informational bool `json:"informational,omitempty"`
}

// Report is the quality assessment of one resort view.
type Report struct {
	ResortID   int64        `json:"resort_id"`
	ResortName string       `json:"resort_name"`
	Status     Level        `json:"status"`
	Score      float64      `json:"score"`
	Successes  int          `json:"successes"`
	Warnings   int          `json:"warnings"`
	Errors     int          `json:"errors"`
	Checks     []FieldCheck `json:"checks"`
}

// Summary aggregates reports across one quality run.
type Summary struct {
	Total    int     `json:"total"`
	Success  int     `json:"success"`
	Warning  int     `json:"warning"`
	Error    int     `json:"error"`
	AvgScore float64 `json:"avg_score"`
}

// Check grades one resort view. Fifteen fields are scored: three
// critical identity fields, six snow-report fields, and six weather
// fields. Forecast arrays and elevation are reported informationally.
func Check(v *resort.View) Report {
	// Zero counters on a resort that is not fully open are expected,
	// not suspicious.
	zeroOK := v.Status == resort.StatusClosed || v.Status == resort.StatusPartial

	checks := []FieldCheck{
		checkString("name", v.Name, true),
		checkString("status", string(v.Status), true),
		checkString("data_source", v.DataSource, true),

		checkFloat("new_snow", v.NewSnow, zeroOK),
		checkFloat("base_depth", v.BaseDepth, zeroOK),
		checkInt("lifts_open", v.LiftsOpen, zeroOK),
		checkInt("lifts_total", v.LiftsTotal, false),
		checkInt("trails_open", v.TrailsOpen, zeroOK),
		checkInt("trails_total", v.TrailsTotal, false),
	}

	var (
		curTemp, windspeed, freezing *float64
		tempBase, tempSummit         *float64
		humidity                     *int
	)
	if v.Weather != nil {
		curTemp = v.Weather.Current.Temperature
		humidity = v.Weather.Current.Humidity
		windspeed = v.Weather.Current.WindSpeed
		freezing = v.Weather.FreezingLevel
		tempBase = v.Weather.TempBase
		tempSummit = v.Weather.TempSummit
	}
	checks = append(checks,
		checkFloat("weather.current.temperature", curTemp, false),
		checkInt("weather.current.humidity", humidity, false),
		checkFloat("weather.current.windspeed", windspeed, false),
		checkFloat("weather.freezing_level_current", freezing, false),
		checkFloat("weather.temp_base", tempBase, false),
		checkFloat("weather.temp_summit", tempSummit, false),
	)
	checks = append(checks, informationalChecks(v)...)

	var succ, warn, errs int
	criticalError := false
	for _, c := range checks {
		if c.Informational {
			continue
		}
		switch c.Level {
		case LevelSuccess:
			succ++
		case LevelWarning:
			warn++
		case LevelError:
			errs++
			if c.Critical {
				criticalError = true
			}
		}
	}
	total := succ + warn + errs

	status := LevelSuccess
	switch {
	case criticalError:
		status = LevelError
	case total > 0 && float64(warn+errs)/float64(total) >= problemRatioWarning:
		status = LevelWarning
	}

	var score float64
	if total > 0 {
		score = math.Round(1000*float64(succ)/float64(total)) / 10
	}

	return Report{
		ResortID:   v.ResortID,
		ResortName: v.Name,
		Status:     status,
		Score:      score,
		Successes:  succ,
		Warnings:   warn,
		Errors:     errs,
		Checks:     checks,
	}
}

// CheckAll grades every view and aggregates the run summary.
func CheckAll(views []*resort.View) ([]Report, Summary) {
	reports := make([]Report, 0, len(views))
	var sum Summary
	var scoreTotal float64

	for _, v := range views {
		rep := Check(v)
		reports = append(reports, rep)
		scoreTotal += rep.Score

		sum.Total++
		switch rep.Status {
		case LevelSuccess:
			sum.Success++
		case LevelWarning:
			sum.Warning++
		case LevelError:
			sum.Error++
		}
	}
	if sum.Total > 0 {
		sum.AvgScore = math.Round(10*scoreTotal/float64(sum.Total)) / 10
	}
	return reports, sum
}

func checkString(field, val string, critical bool) FieldCheck {
	if strings.TrimSpace(val) == "" {
		if critical {
			return FieldCheck{Field: field, Level: LevelError, Message: "missing critical field", Critical: true}
		}
		return FieldCheck{Field: field, Level: LevelError, Message: "blank value"}
	}
	return FieldCheck{Field: field, Level: LevelSuccess, Critical: critical}
}

func checkFloat(field string, val *float64, zeroOK bool) FieldCheck {
	if val == nil {
		return FieldCheck{Field: field, Level: LevelWarning, Message: "missing"}
	}
	return checkNumeric(field, *val, zeroOK)
}

func checkInt(field string, val *int, zeroOK bool) FieldCheck {
	if val == nil {
		return FieldCheck{Field: field, Level: LevelWarning, Message: "missing"}
	}
	return checkNumeric(field, float64(*val), zeroOK)
}

func checkNumeric(field string, val float64, zeroOK bool) FieldCheck {
	if zeroOK && val == 0 {
		return FieldCheck{Field: field, Level: LevelSuccess, Message: "resort not open"}
	}
	if strings.Contains(field, "temp") {
		if val < minPlausibleTemp || val > maxPlausibleTemp {
			return FieldCheck{
				Field:   field,
				Level:   LevelError,
				Message: fmt.Sprintf("implausible temperature %.1f", val),
			}
		}
		return FieldCheck{Field: field, Level: LevelSuccess}
	}
	if val == 0 {
		return FieldCheck{Field: field, Level: LevelWarning, Message: "zero value"}
	}
	if val < 0 {
		return FieldCheck{Field: field, Level: LevelError, Message: "negative value"}
	}
	return FieldCheck{Field: field, Level: LevelSuccess}
}

func informationalChecks(v *resort.View) []FieldCheck {
	var hourly, daily int
	if v.Weather != nil {
		hourly = len(v.Weather.Hourly)
		daily = len(v.Weather.Daily)
	}

	checks := []FieldCheck{
		listCheck("weather.hourly_forecast", hourly),
		listCheck("weather.forecast_7d", daily),
	}
	if v.Elevation == nil {
		checks = append(checks, FieldCheck{
			Field: "elevation", Level: LevelWarning, Message: "missing", Informational: true,
		})
	} else {
		checks = append(checks, FieldCheck{Field: "elevation", Level: LevelSuccess, Informational: true})
	}
	return checks
}

func listCheck(field string, n int) FieldCheck {
	if n == 0 {
		return FieldCheck{Field: field, Level: LevelWarning, Message: "empty", Informational: true}
	}
	return FieldCheck{Field: field, Level: LevelSuccess, Informational: true}
}
