// Package geo resolves a coordinate to the closest catalog region by
// great-circle distance.
package geo

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used by [Distance].
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Candidate is a region that may or may not have coordinates.
type Candidate struct {
	ID    string
	Point *Point
}

// Match is the result of [Nearest].
type Match struct {
	ID         string
	DistanceKm int
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the candidate closest to p. Candidates without a point
// are skipped; ok is false when none has one. Ties keep the earlier
// candidate.
func Nearest(p Point, candidates []Candidate) (m Match, ok bool) {
	best := math.Inf(1)
	for _, c := range candidates {
		if c.Point == nil {
			continue
		}
		d := Distance(p, *c.Point)
		if d < best {
			best = d
			m = Match{ID: c.ID, DistanceKm: int(math.Round(d))}
			ok = true
		}
	}
	return m, ok
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
