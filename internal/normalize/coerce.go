package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Feeds mix numbers, numeric strings, and sentinel strings ("--", "") for
// the same field across resorts. Parsing is centralized here and mapped by
// the field's semantic class: counts coerce to 0, depths to NULL, and
// temperatures to 0.

// Count coerces a loose feed value to a non-negative count. Sentinels,
// non-numeric values, and negatives all become 0.
func Count(v any) int {
	f, ok := parseLoose(v)
	if !ok || f < 0 {
		return 0
	}
	return int(math.Round(f))
}

// Depth coerces a loose feed value to a depth in cm, or nil when the value
// is a sentinel or not numeric.
func Depth(v any) *float64 {
	f, ok := parseLoose(v)
	if !ok {
		return nil
	}
	return &f
}

// TemperatureC coerces a loose feed value to °C. Sentinels become 0.
func TemperatureC(v any) float64 {
	f, ok := parseLoose(v)
	if !ok {
		return 0
	}
	return f
}

func parseLoose(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "--" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
