package store_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/testutil"
)

func newDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return testutil.NewTestDB(t)
}

func mustUser(t *testing.T, us *store.UserStore, name string) *store.User {
	t.Helper()
	u, err := us.CreateWithPassword(context.Background(), store.NewCredentialUser{
		Email:        strings.ToLower(name) + "@example.com",
		DisplayName:  name,
		PasswordHash: "x",
	}, "")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func coord(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }

// seedCatalog loads a small fixed catalog: r1 and r2 have coordinates, r3 does not.
func seedCatalog(t *testing.T, cs *store.CatalogStore) {
	t.Helper()
	err := cs.Seed(context.Background(), store.CatalogSeed{
		Regions: []store.Region{
			{ID: "r1", Name: "Alpha", Country: "A", Latitude: coord(10), Longitude: coord(10)},
			{ID: "r2", Name: "Bravo", Country: "B", Latitude: coord(50), Longitude: coord(50)},
			{ID: "r3", Name: "Charlie", Country: "C"},
		},
		Genres: []store.Genre{{ID: "g1", Name: "Folk"}},
		Artists: []store.Artist{
			{ID: "a1", Name: "Quiet One", RegionID: str("r1"), IsEmerging: true, ListenerCount: 100},
			{ID: "a2", Name: "Big Act", RegionID: str("r1"), ListenerCount: 5000},
			{ID: "a3", Name: "Far Away", RegionID: str("r2"), IsEmerging: true, ListenerCount: 10},
			{ID: "a4", Name: "Nowhere", IsEmerging: true, ListenerCount: 1},
		},
		Tracks: []store.Track{
			{ID: "t1", Title: "Small Song", ArtistID: "a1", GenreID: str("g1"), RegionID: str("r1"), PlayCount: 10},
			{ID: "t2", Title: "Hit", ArtistID: "a2", GenreID: str("g1"), RegionID: str("r1"), PlayCount: 500},
			{ID: "t3", Title: "Distant", ArtistID: "a3", RegionID: str("r2"), PlayCount: 1},
		},
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}
