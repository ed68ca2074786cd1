package geo_test

import (
	"math"
	"testing"

	"github.com/joestump/frequency/internal/geo"
)

func pt(lat, lon float64) *geo.Point { return &geo.Point{Lat: lat, Lon: lon} }

func TestDistance_Symmetric(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lon: 0},
		{Lat: 10, Lon: 10},
		{Lat: -33.87, Lon: 151.21},
		{Lat: 51.5, Lon: -0.12},
		{Lat: 89.9, Lon: 179.9},
		{Lat: -89.9, Lon: -179.9},
	}
	for _, a := range points {
		for _, b := range points {
			ab, ba := geo.Distance(a, b), geo.Distance(b, a)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("Distance(%v,%v)=%v but Distance(%v,%v)=%v", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestDistance_Zero(t *testing.T) {
	for _, p := range []geo.Point{{0, 0}, {45, 90}, {-12.5, -77}, {90, 0}} {
		if d := geo.Distance(p, p); d != 0 {
			t.Errorf("Distance(%v,%v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistance_Known(t *testing.T) {
	// One degree of latitude along a meridian.
	got := geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 1, Lon: 0})
	want := geo.EarthRadiusKm * math.Pi / 180
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Distance = %v, want %v", got, want)
	}

	// Antipodes are half the circumference apart.
	got = geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 180})
	if math.Abs(got-math.Pi*geo.EarthRadiusKm) > 1e-6 {
		t.Errorf("antipodal distance = %v", got)
	}
}

func TestNearest(t *testing.T) {
	tests := []struct {
		name       string
		p          geo.Point
		candidates []geo.Candidate
		wantID     string
		wantOK     bool
	}{
		{
			name:       "closest of two",
			p:          geo.Point{Lat: 11, Lon: 11},
			candidates: []geo.Candidate{{ID: "r1", Point: pt(10, 10)}, {ID: "r2", Point: pt(50, 50)}},
			wantID:     "r1",
			wantOK:     true,
		},
		{
			name:       "skips regions without coordinates",
			p:          geo.Point{Lat: 11, Lon: 11},
			candidates: []geo.Candidate{{ID: "blank"}, {ID: "r2", Point: pt(50, 50)}},
			wantID:     "r2",
			wantOK:     true,
		},
		{
			name:       "no coordinates anywhere",
			p:          geo.Point{Lat: 11, Lon: 11},
			candidates: []geo.Candidate{{ID: "a"}, {ID: "b"}},
		},
		{
			name: "empty list",
			p:    geo.Point{Lat: 11, Lon: 11},
		},
		{
			name:       "tie keeps first",
			p:          geo.Point{Lat: 0, Lon: 0},
			candidates: []geo.Candidate{{ID: "east", Point: pt(0, 1)}, {ID: "west", Point: pt(0, -1)}},
			wantID:     "east",
			wantOK:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := geo.Nearest(tt.p, tt.candidates)
			if ok != tt.wantOK || m.ID != tt.wantID {
				t.Errorf("Nearest = %+v, %v; want %q, %v", m, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestNearest_RoundsDistance(t *testing.T) {
	m, ok := geo.Nearest(geo.Point{Lat: 11, Lon: 11}, []geo.Candidate{{ID: "r1", Point: pt(10, 10)}})
	if !ok {
		t.Fatal("expected a match")
	}
	want := int(math.Round(geo.Distance(geo.Point{Lat: 11, Lon: 11}, geo.Point{Lat: 10, Lon: 10})))
	if m.DistanceKm != want {
		t.Errorf("DistanceKm = %d, want %d", m.DistanceKm, want)
	}
	if m.DistanceKm < 150 || m.DistanceKm > 160 {
		t.Errorf("DistanceKm = %d, expected roughly 155 km", m.DistanceKm)
	}
}
