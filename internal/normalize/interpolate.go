package normalize

import "sort"

// Standard altitudes for the requested pressure levels, in meters. The
// mapping is fixed: forecast models report temperature at pressure levels,
// and these are the conventional mid-latitude altitudes for each.
const (
	altitude1000hPa = 110
	altitude925hPa  = 750
	altitude850hPa  = 1500
	altitude700hPa  = 3000
	altitude500hPa  = 5500
)

// Banded temperature results outside this range are treated as
// interpolation artifacts and dropped.
const (
	minPlausibleTempC = -50
	maxPlausibleTempC = 50
)

// PressurePoint is one pressure-level temperature anchored at its standard
// altitude.
type PressurePoint struct {
	AltitudeM   float64
	Temperature float64
}

// InterpolateAtAltitude computes the temperature at a target altitude by
// piecewise linear interpolation over the profile, extrapolating with the
// nearest two levels outside its range. Returns nil with fewer than two
// points or when the result is implausible.
func InterpolateAtAltitude(profile []PressurePoint, altitudeM float64) *float64 {
	if len(profile) < 2 {
		return nil
	}

	sorted := make([]PressurePoint, len(profile))
	copy(sorted, profile)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AltitudeM < sorted[j].AltitudeM })

	var lo, hi PressurePoint
	switch {
	case altitudeM <= sorted[0].AltitudeM:
		lo, hi = sorted[0], sorted[1]
	case altitudeM >= sorted[len(sorted)-1].AltitudeM:
		lo, hi = sorted[len(sorted)-2], sorted[len(sorted)-1]
	default:
		for i := 1; i < len(sorted); i++ {
			if altitudeM <= sorted[i].AltitudeM {
				lo, hi = sorted[i-1], sorted[i]
				break
			}
		}
	}

	if hi.AltitudeM == lo.AltitudeM {
		return nil
	}

	t := lo.Temperature + (altitudeM-lo.AltitudeM)/(hi.AltitudeM-lo.AltitudeM)*(hi.Temperature-lo.Temperature)
	if t < minPlausibleTempC || t > maxPlausibleTempC {
		return nil
	}
	return &t
}

// BandedTemperatures interpolates base, mid, and summit temperatures for a
// resort's elevation band. All three are nil when either elevation bound is
// missing.
func BandedTemperatures(profile []PressurePoint, elevationMin, elevationMax *int) (base, mid, summit *float64) {
	if elevationMin == nil || elevationMax == nil {
		return nil, nil, nil
	}

	lo := float64(*elevationMin)
	hi := float64(*elevationMax)

	base = InterpolateAtAltitude(profile, lo)
	mid = InterpolateAtAltitude(profile, (lo+hi)/2)
	summit = InterpolateAtAltitude(profile, hi)
	return base, mid, summit
}
