// Package catalog is the read-only view of regions, artists and tracks
// used by the discovery screens.
package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/joestump/frequency/internal/geo"
	"github.com/joestump/frequency/internal/store"
)

const (
	// EmergingLimit caps the emerging-artist spotlight.
	EmergingLimit = 10
	// recommendationPool is how many least-heard artists are drawn before
	// shuffling; RecommendationCount of them are returned.
	recommendationPool  = 6
	RecommendationCount = 4
)

// TrackView is a track with its artist and genre. Either may be nil.
type TrackView struct {
	Track  *store.Track
	Artist *store.Artist
	Genre  *store.Genre
}

// ArtistView is an artist with its home region, nil if it has none.
type ArtistView struct {
	Artist *store.Artist
	Region *store.Region
}

// NearestMatch is the region closest to a coordinate.
type NearestMatch struct {
	Region     *store.Region
	DistanceKm int
}

type Reader struct {
	store *store.CatalogStore

	mu   sync.Mutex
	rand *rand.Rand
}

type Option func(*Reader)

// WithRand replaces the random source used by Recommendations and
// RandomRegion. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(rd *Reader) { rd.rand = r }
}

func NewReader(cs *store.CatalogStore, opts ...Option) *Reader {
	r := &Reader{
		store: cs,
		rand:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Regions returns every region ordered by name.
func (r *Reader) Regions(ctx context.Context) ([]*store.Region, error) {
	return r.store.ListRegions(ctx)
}

func (r *Reader) Region(ctx context.Context, id string) (*store.Region, error) {
	return r.store.GetRegion(ctx, id)
}

// RegionTracks returns the region's tracks, most played first.
func (r *Reader) RegionTracks(ctx context.Context, regionID string) ([]TrackView, error) {
	tracks, err := r.store.ListTracksByRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}

	var artistIDs, genreIDs []string
	for _, t := range tracks {
		artistIDs = append(artistIDs, t.ArtistID)
		if t.GenreID.Valid {
			genreIDs = append(genreIDs, t.GenreID.String)
		}
	}
	artistList, err := r.store.ListArtistsByIDs(ctx, artistIDs)
	if err != nil {
		return nil, err
	}
	genreList, err := r.store.ListGenresByIDs(ctx, genreIDs)
	if err != nil {
		return nil, err
	}
	artists := byID(artistList, func(a *store.Artist) string { return a.ID })
	genres := byID(genreList, func(g *store.Genre) string { return g.ID })

	out := make([]TrackView, len(tracks))
	for i, t := range tracks {
		v := TrackView{Track: t, Artist: artists[t.ArtistID]}
		if t.GenreID.Valid {
			v.Genre = genres[t.GenreID.String]
		}
		out[i] = v
	}
	return out, nil
}

// RegionArtists returns the region's artists, most listened first.
func (r *Reader) RegionArtists(ctx context.Context, regionID string) ([]*store.Artist, error) {
	return r.store.ListArtistsByRegion(ctx, regionID)
}

// SplitEmerging partitions artists into the emerging and popular discovery
// tabs, keeping the input order within each.
func SplitEmerging(artists []*store.Artist) (emerging, popular []*store.Artist) {
	emerging, popular = []*store.Artist{}, []*store.Artist{}
	for _, a := range artists {
		if a.IsEmerging {
			emerging = append(emerging, a)
		} else {
			popular = append(popular, a)
		}
	}
	return emerging, popular
}

// EmergingArtists returns the most listened emerging artists with their
// regions.
func (r *Reader) EmergingArtists(ctx context.Context) ([]ArtistView, error) {
	artists, err := r.store.ListEmergingArtists(ctx, store.EmergingQuery{Limit: EmergingLimit})
	if err != nil {
		return nil, err
	}
	return r.withRegions(ctx, artists)
}

// Recommendations surfaces the least-heard emerging artists, optionally
// from outside excludeRegionID, in random order. It draws a small pool
// ordered by ascending listener count and returns a shuffled subset, so
// repeated calls vary.
func (r *Reader) Recommendations(ctx context.Context, excludeRegionID string) ([]ArtistView, error) {
	artists, err := r.store.ListEmergingArtists(ctx, store.EmergingQuery{
		Ascending:       true,
		ExcludeRegionID: excludeRegionID,
		Limit:           recommendationPool,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.rand.Shuffle(len(artists), func(i, j int) { artists[i], artists[j] = artists[j], artists[i] })
	r.mu.Unlock()

	if len(artists) > RecommendationCount {
		artists = artists[:RecommendationCount]
	}
	return r.withRegions(ctx, artists)
}

// NearestRegion resolves lat/lon to the closest region with coordinates.
// ok is false when no region has coordinates.
func (r *Reader) NearestRegion(ctx context.Context, lat, lon float64) (m NearestMatch, ok bool, err error) {
	regions, err := r.store.ListRegions(ctx)
	if err != nil {
		return NearestMatch{}, false, err
	}
	candidates := make([]geo.Candidate, len(regions))
	for i, reg := range regions {
		candidates[i] = geo.Candidate{ID: reg.ID}
		if reg.Latitude.Valid && reg.Longitude.Valid {
			candidates[i].Point = &geo.Point{Lat: reg.Latitude.Float64, Lon: reg.Longitude.Float64}
		}
	}
	match, ok := geo.Nearest(geo.Point{Lat: lat, Lon: lon}, candidates)
	if !ok {
		return NearestMatch{}, false, nil
	}
	for _, reg := range regions {
		if reg.ID == match.ID {
			return NearestMatch{Region: reg, DistanceKm: match.DistanceKm}, true, nil
		}
	}
	return NearestMatch{}, false, nil
}

// RandomRegion picks a region uniformly, skipping excludeID. It returns
// store.ErrNotFound when nothing else is left to pick.
func (r *Reader) RandomRegion(ctx context.Context, excludeID string) (*store.Region, error) {
	regions, err := r.store.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	pool := regions[:0:0]
	for _, reg := range regions {
		if reg.ID != excludeID {
			pool = append(pool, reg)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no other region available", store.ErrNotFound)
	}
	r.mu.Lock()
	i := r.rand.IntN(len(pool))
	r.mu.Unlock()
	return pool[i], nil
}

func (r *Reader) withRegions(ctx context.Context, artists []*store.Artist) ([]ArtistView, error) {
	var ids []string
	for _, a := range artists {
		if a.RegionID.Valid {
			ids = append(ids, a.RegionID.String)
		}
	}
	regionList, err := r.store.ListRegionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	regions := byID(regionList, func(reg *store.Region) string { return reg.ID })

	out := make([]ArtistView, len(artists))
	for i, a := range artists {
		v := ArtistView{Artist: a}
		if a.RegionID.Valid {
			v.Region = regions[a.RegionID.String]
		}
		out[i] = v
	}
	return out, nil
}

func byID[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}
