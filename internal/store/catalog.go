package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Region is a catalog region. Regions without coordinates are listed but
// never chosen as a nearest region.
type Region struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Country     string          `db:"country"`
	Description sql.NullString  `db:"description"`
	Latitude    sql.NullFloat64 `db:"latitude"`
	Longitude   sql.NullFloat64 `db:"longitude"`
	CreatedAt   time.Time       `db:"created_at"`
}

type Genre struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type Artist struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Bio           sql.NullString `db:"bio"`
	RegionID      sql.NullString `db:"region_id"`
	IsEmerging    bool           `db:"is_emerging"`
	ListenerCount int64          `db:"listener_count"`
	ImageURL      sql.NullString `db:"image_url"`
	CreatedAt     time.Time      `db:"created_at"`
}

type Track struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	ArtistID        string         `db:"artist_id"`
	GenreID         sql.NullString `db:"genre_id"`
	RegionID        sql.NullString `db:"region_id"`
	PlayCount       int64          `db:"play_count"`
	CulturalContext sql.NullString `db:"cultural_context"`
	CreatedAt       time.Time      `db:"created_at"`
}

// EmergingQuery selects emerging artists by listener count.
type EmergingQuery struct {
	Ascending       bool
	ExcludeRegionID string
	Limit           int
}

// CatalogSeed is a full catalog snapshot loaded by the seed command.
type CatalogSeed struct {
	Regions []Region
	Genres  []Genre
	Artists []Artist
	Tracks  []Track
}

// CatalogStore reads the catalog tables. Only Seed writes to them.
type CatalogStore struct {
	db *sqlx.DB
}

func NewCatalogStore(db *sqlx.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) q(query string) string { return s.db.Rebind(query) }

func (s *CatalogStore) ListRegions(ctx context.Context) ([]*Region, error) {
	var regions []*Region
	if err := s.db.SelectContext(ctx, &regions, `SELECT * FROM regions ORDER BY name ASC`); err != nil {
		return nil, Classify(err)
	}
	return regions, nil
}

func (s *CatalogStore) GetRegion(ctx context.Context, id string) (*Region, error) {
	var r Region
	if err := s.db.GetContext(ctx, &r, s.q(`SELECT * FROM regions WHERE id = ?`), id); err != nil {
		return nil, Classify(err)
	}
	return &r, nil
}

func (s *CatalogStore) ListRegionsByIDs(ctx context.Context, ids []string) ([]*Region, error) {
	var regions []*Region
	if err := s.selectIn(ctx, &regions, `SELECT * FROM regions WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	return regions, nil
}

func (s *CatalogStore) ListGenresByIDs(ctx context.Context, ids []string) ([]*Genre, error) {
	var genres []*Genre
	if err := s.selectIn(ctx, &genres, `SELECT * FROM genres WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	return genres, nil
}

func (s *CatalogStore) ListArtistsByIDs(ctx context.Context, ids []string) ([]*Artist, error) {
	var artists []*Artist
	if err := s.selectIn(ctx, &artists, `SELECT * FROM artists WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	return artists, nil
}

func (s *CatalogStore) ListTracksByIDs(ctx context.Context, ids []string) ([]*Track, error) {
	var tracks []*Track
	if err := s.selectIn(ctx, &tracks, `SELECT * FROM tracks WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (s *CatalogStore) selectIn(ctx context.Context, dest any, query string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := in(s.db, query, ids)
	if err != nil {
		return Classify(err)
	}
	return Classify(s.db.SelectContext(ctx, dest, query, args...))
}

// ListTracksByRegion returns the region's tracks, most played first.
func (s *CatalogStore) ListTracksByRegion(ctx context.Context, regionID string) ([]*Track, error) {
	var tracks []*Track
	err := s.db.SelectContext(ctx, &tracks, s.q(`
		SELECT * FROM tracks WHERE region_id = ? ORDER BY play_count DESC, id ASC
	`), regionID)
	if err != nil {
		return nil, Classify(err)
	}
	return tracks, nil
}

// ListArtistsByRegion returns the region's artists, most listened first.
func (s *CatalogStore) ListArtistsByRegion(ctx context.Context, regionID string) ([]*Artist, error) {
	var artists []*Artist
	err := s.db.SelectContext(ctx, &artists, s.q(`
		SELECT * FROM artists WHERE region_id = ? ORDER BY listener_count DESC, id ASC
	`), regionID)
	if err != nil {
		return nil, Classify(err)
	}
	return artists, nil
}

// ListEmergingArtists returns artists flagged as emerging ordered by
// listener count. ExcludeRegionID drops that region's artists along with
// artists that have no region, matching SQL <> semantics.
func (s *CatalogStore) ListEmergingArtists(ctx context.Context, eq EmergingQuery) ([]*Artist, error) {
	query := `SELECT * FROM artists WHERE is_emerging = ?`
	args := []any{true}
	if eq.ExcludeRegionID != "" {
		query += ` AND region_id <> ?`
		args = append(args, eq.ExcludeRegionID)
	}
	if eq.Ascending {
		query += ` ORDER BY listener_count ASC, id ASC`
	} else {
		query += ` ORDER BY listener_count DESC, id ASC`
	}
	if eq.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, eq.Limit)
	}
	var artists []*Artist
	if err := s.db.SelectContext(ctx, &artists, s.q(query), args...); err != nil {
		return nil, Classify(err)
	}
	return artists, nil
}

// Seed upserts snapshot in one transaction, parents before children.
// Rows absent from the snapshot are kept.
func (s *CatalogStore) Seed(ctx context.Context, snapshot CatalogSeed) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Classify(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, r := range snapshot.Regions {
		err := upsert(ctx, tx, "regions", r.ID,
			`UPDATE regions SET name = ?, country = ?, description = ?, latitude = ?, longitude = ? WHERE id = ?`,
			[]any{r.Name, r.Country, r.Description, r.Latitude, r.Longitude, r.ID},
			`INSERT INTO regions (id, name, country, description, latitude, longitude, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{r.ID, r.Name, r.Country, r.Description, r.Latitude, r.Longitude, now})
		if err != nil {
			return err
		}
	}
	for _, g := range snapshot.Genres {
		err := upsert(ctx, tx, "genres", g.ID,
			`UPDATE genres SET name = ? WHERE id = ?`,
			[]any{g.Name, g.ID},
			`INSERT INTO genres (id, name, created_at) VALUES (?, ?, ?)`,
			[]any{g.ID, g.Name, now})
		if err != nil {
			return err
		}
	}
	for _, a := range snapshot.Artists {
		err := upsert(ctx, tx, "artists", a.ID,
			`UPDATE artists SET name = ?, bio = ?, region_id = ?, is_emerging = ?, listener_count = ?, image_url = ? WHERE id = ?`,
			[]any{a.Name, a.Bio, a.RegionID, a.IsEmerging, a.ListenerCount, a.ImageURL, a.ID},
			`INSERT INTO artists (id, name, bio, region_id, is_emerging, listener_count, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{a.ID, a.Name, a.Bio, a.RegionID, a.IsEmerging, a.ListenerCount, a.ImageURL, now})
		if err != nil {
			return err
		}
	}
	for _, t := range snapshot.Tracks {
		err := upsert(ctx, tx, "tracks", t.ID,
			`UPDATE tracks SET title = ?, artist_id = ?, genre_id = ?, region_id = ?, play_count = ?, cultural_context = ? WHERE id = ?`,
			[]any{t.Title, t.ArtistID, t.GenreID, t.RegionID, t.PlayCount, t.CulturalContext, t.ID},
			`INSERT INTO tracks (id, title, artist_id, genre_id, region_id, play_count, cultural_context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{t.ID, t.Title, t.ArtistID, t.GenreID, t.RegionID, t.PlayCount, t.CulturalContext, now})
		if err != nil {
			return err
		}
	}
	return Classify(tx.Commit())
}

// upsert runs update when a row with id exists in table and insert
// otherwise. MySQL has no ON CONFLICT clause, so the row is probed first.
func upsert(ctx context.Context, tx *sqlx.Tx, table, id, update string, updateArgs []any, insert string, insertArgs []any) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`), id); err != nil {
		return Classify(err)
	}
	stmt, args := insert, insertArgs
	if n > 0 {
		stmt, args = update, updateArgs
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), args...); err != nil {
		return classifyWrite(err, ErrConflict)
	}
	return nil
}
