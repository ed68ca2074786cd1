package catalog_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/testutil"
)

const fixtureYAML = `
regions:
  - id: r1
    name: Alpha
    country: A
    latitude: 10
    longitude: 10
    artists:
      - id: big
        name: Big Act
        listeners: 5000
        tracks:
          - {id: hit, title: Hit, genre: Folk, plays: 900}
          - {id: b-side, title: B Side, plays: 5}
      - id: e1
        name: Emerging One
        emerging: true
        listeners: 10
      - id: e2
        name: Emerging Two
        emerging: true
        listeners: 20
  - id: r2
    name: Bravo
    country: B
    latitude: 50
    longitude: 50
    artists:
      - {id: e3, name: Emerging Three, emerging: true, listeners: 5}
      - {id: e4, name: Emerging Four, emerging: true, listeners: 30}
      - {id: e5, name: Emerging Five, emerging: true, listeners: 40}
      - {id: e6, name: Emerging Six, emerging: true, listeners: 50}
      - {id: e7, name: Emerging Seven, emerging: true, listeners: 60}
  - id: r3
    name: Charlie
    country: C
`

func newReader(t *testing.T, opts ...catalog.Option) *catalog.Reader {
	t.Helper()
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	seed, err := catalog.ParseSeed(strings.NewReader(fixtureYAML))
	require.NoError(t, err)
	require.NoError(t, catalog.Load(context.Background(), cs, seed))
	return catalog.NewReader(cs, opts...)
}

func TestRegionTracks(t *testing.T) {
	r := newReader(t)
	tracks, err := r.RegionTracks(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "hit", tracks[0].Track.ID, "most played first")
	assert.Equal(t, "Big Act", tracks[0].Artist.Name)
	require.NotNil(t, tracks[0].Genre)
	assert.Equal(t, "Folk", tracks[0].Genre.Name)
	assert.Nil(t, tracks[1].Genre)
}

func TestRegionArtistsAndSplit(t *testing.T) {
	r := newReader(t)
	artists, err := r.RegionArtists(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, artists, 3)
	assert.Equal(t, "big", artists[0].ID)

	emerging, popular := catalog.SplitEmerging(artists)
	assert.Len(t, emerging, 2)
	assert.Len(t, popular, 1)
	assert.Equal(t, "e2", emerging[0].ID, "input order is kept")

	emerging, popular = catalog.SplitEmerging(nil)
	assert.NotNil(t, emerging)
	assert.NotNil(t, popular)
}

func TestEmergingArtists(t *testing.T) {
	r := newReader(t)
	got, err := r.EmergingArtists(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, "e7", got[0].Artist.ID, "most listened first")
	require.NotNil(t, got[0].Region)
	assert.Equal(t, "Bravo", got[0].Region.Name)
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, catalog.WithRand(rand.New(rand.NewPCG(1, 2))))

	got, err := r.Recommendations(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, catalog.RecommendationCount)

	// The pool is the six least-heard emerging artists; e7 is the seventh.
	pool := map[string]bool{"e1": true, "e2": true, "e3": true, "e4": true, "e5": true, "e6": true}
	for _, v := range got {
		assert.True(t, pool[v.Artist.ID], "%s is outside the least-heard pool", v.Artist.ID)
		assert.True(t, v.Artist.IsEmerging)
	}

	excluded, err := r.Recommendations(ctx, "r2")
	require.NoError(t, err)
	require.Len(t, excluded, 2)
	for _, v := range excluded {
		assert.Equal(t, "r1", v.Artist.RegionID.String)
	}
}

func TestRecommendations_DeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	ids := func(r *catalog.Reader) []string {
		got, err := r.Recommendations(ctx, "")
		require.NoError(t, err)
		out := make([]string, len(got))
		for i, v := range got {
			out[i] = v.Artist.ID
		}
		return out
	}
	a := newReader(t, catalog.WithRand(rand.New(rand.NewPCG(7, 7))))
	b := newReader(t, catalog.WithRand(rand.New(rand.NewPCG(7, 7))))
	assert.Equal(t, ids(a), ids(b))
}

func TestNearestRegion(t *testing.T) {
	r := newReader(t)
	m, ok, err := r.NearestRegion(context.Background(), 11, 11)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r1", m.Region.ID)
	assert.InDelta(t, 156, m.DistanceKm, 2)
}

func TestNearestRegion_NoCoordinates(t *testing.T) {
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	require.NoError(t, cs.Seed(context.Background(), store.CatalogSeed{
		Regions: []store.Region{{ID: "x", Name: "Nowhere"}},
	}))
	_, ok, err := catalog.NewReader(cs).NearestRegion(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRandomRegion(t *testing.T) {
	ctx := context.Background()
	r := newReader(t, catalog.WithRand(rand.New(rand.NewPCG(3, 4))))

	for i := 0; i < 20; i++ {
		reg, err := r.RandomRegion(ctx, "r1")
		require.NoError(t, err)
		assert.NotEqual(t, "r1", reg.ID)
	}

	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	require.NoError(t, cs.Seed(ctx, store.CatalogSeed{Regions: []store.Region{{ID: "only", Name: "Only"}}}))
	_, err := catalog.NewReader(cs).RandomRegion(ctx, "only")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDefaultSeed(t *testing.T) {
	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)
	assert.Len(t, seed.Regions, 8)
	for _, r := range seed.Regions {
		assert.True(t, r.Latitude.Valid && r.Longitude.Valid, "%s has coordinates", r.ID)
	}
	assert.NotEmpty(t, seed.Genres)

	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	require.NoError(t, catalog.Load(context.Background(), cs, seed))
	// Loading twice updates in place.
	require.NoError(t, catalog.Load(context.Background(), cs, seed))
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "regions:\n  - name: A\n    colour: red\n", "colour"},
		{"half a coordinate", "regions:\n  - name: A\n    latitude: 1\n", "latitude and longitude"},
		{"duplicate region", "regions:\n  - name: A\n  - name: a\n", "duplicate region"},
		{"missing title", "regions:\n  - name: A\n    artists:\n      - name: X\n        tracks:\n          - genre: Pop\n", "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.ParseSeed(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Punjabi Hip-Hop":    "punjabi-hip-hop",
		"  K-Pop ":           "k-pop",
		"Focalistic & Vigro": "focalistic-vigro",
		"Tití Me Preguntó":   "tití-me-preguntó",
	}
	for in, want := range tests {
		assert.Equal(t, want, catalog.Slug(in), in)
	}
}
