// Package geo provides the geographic primitives used by the trail
// pipeline: haversine distances, polyline lengths, bounding boxes for
// Overpass queries, and point-in-polygon tests for boundary filtering.
//
// Polylines and polygons are [lon, lat] pairs, matching the GeoJSON-style
// ordering used in stored geometry.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// DistanceMeters returns the haversine distance between two points in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(rLat1)*math.Cos(rLat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// DistanceKM returns the haversine distance between two points in kilometers.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceMeters(lat1, lon1, lat2, lon2) / 1000
}

// LengthMeters returns the total length of a polyline in meters.
func LengthMeters(line [][]float64) float64 {
	if len(line) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(line); i++ {
		total += DistanceMeters(line[i-1][1], line[i-1][0], line[i][1], line[i][0])
	}
	return total
}

// BBox is a bounding box in degrees.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// BoundingBox returns a box extending radiusKM from the center in each
// direction. One degree of latitude is taken as 111 km; longitude degrees
// shrink with the cosine of the latitude.
func BoundingBox(lat, lon, radiusKM float64) BBox {
	latOffset := radiusKM / 111.0
	lonOffset := radiusKM / (111.0 * math.Cos(lat*math.Pi/180))

	return BBox{
		South: lat - latOffset,
		West:  lon - lonOffset,
		North: lat + latOffset,
		East:  lon + lonOffset,
	}
}

// String renders the box in Overpass QL order: (south,west,north,east).
func (b BBox) String() string {
	return fmt.Sprintf("(%f,%f,%f,%f)", b.South, b.West, b.North, b.East)
}

// PointInPolygon reports whether a [lon, lat] point is inside the polygon
// using ray casting. Points exactly on an edge may report either side.
func PointInPolygon(point []float64, polygon [][]float64) bool {
	if len(point) < 2 || len(polygon) < 3 {
		return false
	}

	x, y := point[0], point[1]
	inside := false
	n := len(polygon)

	p1x, p1y := polygon[0][0], polygon[0][1]
	for i := 1; i <= n; i++ {
		p2x, p2y := polygon[i%n][0], polygon[i%n][1]
		if y > math.Min(p1y, p2y) && y <= math.Max(p1y, p2y) && x <= math.Max(p1x, p2x) {
			var xCross float64
			if p1y != p2y {
				xCross = (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
			}
			if p1x == p2x || x <= xCross {
				inside = !inside
			}
		}
		p1x, p1y = p2x, p2y
	}

	return inside
}

// PolylineInPolygon samples the line (both ends, the midpoint, and every
// fifth of its points) and reports whether at least half the samples fall
// inside the polygon.
func PolylineInPolygon(line, polygon [][]float64) bool {
	if len(line) < 2 || len(polygon) < 3 {
		return false
	}

	samples := [][]float64{line[0], line[len(line)-1], line[len(line)/2]}
	step := len(line) / 5
	if step < 1 {
		step = 1
	}
	for i := step; i < len(line); i += step {
		samples = append(samples, line[i])
	}

	inside := 0
	for _, p := range samples {
		if PointInPolygon(p, polygon) {
			inside++
		}
	}

	return float64(inside) >= float64(len(samples))*0.5
}

// Centroid returns the vertex mean of a [lon, lat] ring.
func Centroid(ring [][]float64) (lon, lat float64) {
	if len(ring) == 0 {
		return 0, 0
	}

	for _, p := range ring {
		lon += p[0]
		lat += p[1]
	}
	n := float64(len(ring))
	return lon / n, lat / n
}

// CloseRing appends the first vertex when the ring is not already closed.
func CloseRing(ring [][]float64) [][]float64 {
	if len(ring) == 0 {
		return ring
	}

	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(ring, []float64{first[0], first[1]})
	}
	return ring
}
