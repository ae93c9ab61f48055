// Package normalize maps raw provider payloads onto the canonical resort
// records: status derivation, sentinel coercion, supplementary merging,
// forecast shaping, and elevation-banded temperature interpolation.
//
// Normalization is pure: the same payload always yields the same record,
// and timestamps are assigned at persistence time.
package normalize

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/powderlines/powderlines/internal/provider/mtnpowder"
	"github.com/powderlines/powderlines/internal/provider/onthesnow"
	"github.com/powderlines/powderlines/internal/resort"
)

// compassPoints are the 8-point compass names in 45° steps from north.
var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// FromMtnPowder builds the canonical snapshot from a MtnPowder feed. The
// feed has no base depth field, so base_depth is reported as 0.
func FromMtnPowder(desc resort.Descriptor, feed *mtnpowder.Feed, sourceURL string) resort.Snapshot {
	snow := feed.SnowReport
	liftsOpen := Count(snow.TotalOpenLifts)

	var newSnow *float64
	if snow.StormTotalCM == nil {
		newSnow = f64Ptr(0)
	} else {
		newSnow = Depth(snow.StormTotalCM)
	}

	cond := resort.Condition{
		ResortID:    desc.ID,
		Status:      mtnPowderStatus(feed.OperatingStatus, liftsOpen),
		NewSnow:     newSnow,
		BaseDepth:   f64Ptr(0),
		LiftsOpen:   intPtr(liftsOpen),
		LiftsTotal:  intPtr(Count(snow.TotalLifts)),
		TrailsOpen:  intPtr(Count(snow.TotalOpenTrails)),
		TrailsTotal: intPtr(Count(snow.TotalTrails)),
		Temperature: f64Ptr(TemperatureC(feed.CurrentConditions.Base.TemperatureC)),
		Source:      sourceURL,
		DataSource:  resort.SourceMtnPowder,
	}

	return resort.Snapshot{Resort: desc.Identity(), Condition: cond}
}

// FromOnTheSnow builds the canonical snapshot from an OnTheSnow page. The
// page may correct the registry's name and coordinates; depth falls back
// base, then summit, then 0.
func FromOnTheSnow(desc resort.Descriptor, page *onthesnow.Page, pageURL string) resort.Snapshot {
	fr := page.Props.PageProps.FullResort

	identity := desc.Identity()
	if fr.Title != "" {
		identity.Name = fr.Title
	}
	if fr.Latitude != nil && *fr.Latitude != 0 {
		identity.Lat = *fr.Latitude
	}
	if fr.Longitude != nil && *fr.Longitude != 0 {
		identity.Lon = *fr.Longitude
	}

	var baseDepth float64
	switch {
	case fr.Snow.Base != nil && *fr.Snow.Base != 0:
		baseDepth = *fr.Snow.Base
	case fr.Snow.Summit != nil && *fr.Snow.Summit != 0:
		baseDepth = *fr.Snow.Summit
	}

	var newSnow float64
	if fr.Snow.Last24 != nil {
		newSnow = *fr.Snow.Last24
	}

	extra := map[string]any{}
	if fr.Status.OpeningDate != "" {
		extra[resort.ExtraOpeningDate] = fr.Status.OpeningDate
	}
	if fr.Status.ClosingDate != "" {
		extra[resort.ExtraClosingDate] = fr.Status.ClosingDate
	}
	if fr.Snow.Summit != nil && *fr.Snow.Summit != 0 {
		extra[resort.ExtraSummitDepth] = *fr.Snow.Summit
	}
	if len(extra) == 0 {
		extra = nil
	}

	cond := resort.Condition{
		ResortID:    desc.ID,
		Status:      openFlagStatus(fr.Status.OpenFlag),
		NewSnow:     &newSnow,
		BaseDepth:   &baseDepth,
		LiftsOpen:   intPtr(valueOrZero(fr.Lifts.Open)),
		LiftsTotal:  intPtr(valueOrZero(fr.Lifts.Total)),
		TrailsOpen:  intPtr(valueOrZero(fr.Runs.Open)),
		TrailsTotal: intPtr(valueOrZero(fr.Runs.Total)),
		Temperature: f64Ptr(meanTemperature(page.Props.PageProps.ShortWeather.Temp)),
		Extra:       extra,
		Source:      pageURL,
		DataSource:  resort.SourceOnTheSnow,
	}

	return resort.Snapshot{
		Resort:    identity,
		Condition: cond,
		Webcams:   WebcamsFrom(page, pageURL),
	}
}

// MergeSupplementary folds a supplementary OnTheSnow page into a primary
// snapshot. Webcams always come from the page; lift and trail counts are
// backfilled per field, and only where the primary reported nothing.
func MergeSupplementary(snap *resort.Snapshot, page *onthesnow.Page, pageURL string) {
	snap.Webcams = WebcamsFrom(page, pageURL)

	fr := page.Props.PageProps.FullResort
	fillCount(&snap.Condition.TrailsTotal, fr.Runs.Total)
	fillCount(&snap.Condition.TrailsOpen, fr.Runs.Open)
	fillCount(&snap.Condition.LiftsTotal, fr.Lifts.Total)
	fillCount(&snap.Condition.LiftsOpen, fr.Lifts.Open)
}

// WebcamsFrom converts the page's webcam entries. Entries without an
// upstream uuid get a stable one derived from the page URL and image, so
// the same camera keeps its identity across runs.
func WebcamsFrom(page *onthesnow.Page, pageURL string) []resort.Webcam {
	cams := page.Props.PageProps.FullResort.Webcams
	if len(cams) == 0 {
		return nil
	}

	out := make([]resort.Webcam, 0, len(cams))
	for _, cam := range cams {
		id := cam.UUID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL+"#"+cam.Image)).String()
		}
		out = append(out, resort.Webcam{
			UUID:         id,
			Title:        cam.Title,
			ImageURL:     cam.Image,
			ThumbnailURL: cam.Thumbnail,
			VideoURL:     cam.Video,
			Type:         cam.Type,
			Featured:     cam.Featured,
			LastUpdated:  cam.LastUpdated,
			Source:       pageURL,
		})
	}
	return out
}

// Compass maps wind direction degrees to an 8-point compass name.
func Compass(degrees float64) string {
	idx := int(math.Round(degrees/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

func mtnPowderStatus(operating string, liftsOpen int) resort.Status {
	open := strings.Contains(operating, "Open")
	switch {
	case open && liftsOpen > 0:
		return resort.StatusOpen
	case open:
		return resort.StatusPartial
	default:
		return resort.StatusClosed
	}
}

func openFlagStatus(flag *int) resort.Status {
	if flag == nil {
		return resort.StatusClosed
	}
	switch *flag {
	case 0:
		return resort.StatusOpen
	case 1:
		return resort.StatusPartial
	default:
		return resort.StatusClosed
	}
}

// meanTemperature averages the page's min/max strip. Either bound at 0
// reads as "not reported" and zeroes the whole value, matching how the
// page renders an offseason strip.
func meanTemperature(t onthesnow.TempRange) float64 {
	if t.Min == nil || t.Max == nil || *t.Min == 0 || *t.Max == 0 {
		return 0
	}
	return round1((*t.Min + *t.Max) / 2)
}

func fillCount(dst **int, src *int) {
	if (*dst == nil || **dst == 0) && src != nil && *src > 0 {
		v := *src
		*dst = &v
	}
}

func valueOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// round1 rounds half away from zero to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func f64Ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
