package catalog

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/joestump/frequency/internal/store"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// SeedFile is the YAML layout accepted by the seed command. Artists nest
// under their region and tracks under their artist; genres are collected
// from track genre names.
type SeedFile struct {
	Regions []SeedRegion `yaml:"regions"`
}

type SeedRegion struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Country     string       `yaml:"country"`
	Description string       `yaml:"description"`
	Latitude    *float64     `yaml:"latitude"`
	Longitude   *float64     `yaml:"longitude"`
	Artists     []SeedArtist `yaml:"artists"`
}

type SeedArtist struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Bio       string      `yaml:"bio"`
	Emerging  bool        `yaml:"emerging"`
	Listeners int64       `yaml:"listeners"`
	ImageURL  string      `yaml:"image_url"`
	Tracks    []SeedTrack `yaml:"tracks"`
}

type SeedTrack struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Genre   string `yaml:"genre"`
	Plays   int64  `yaml:"plays"`
	Context string `yaml:"context"`
}

// ParseSeed decodes a YAML catalog and flattens it into store rows.
// Missing ids are derived from names.
func ParseSeed(r io.Reader) (store.CatalogSeed, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return store.CatalogSeed{}, fmt.Errorf("decode catalog: %w", err)
	}
	return f.flatten()
}

// DefaultSeed returns the catalog bundled with the binary.
func DefaultSeed() (store.CatalogSeed, error) {
	return ParseSeed(bytes.NewReader(defaultCatalog))
}

// Load writes seed to the catalog tables.
func Load(ctx context.Context, cs *store.CatalogStore, seed store.CatalogSeed) error {
	return cs.Seed(ctx, seed)
}

func (f SeedFile) flatten() (store.CatalogSeed, error) {
	var out store.CatalogSeed
	genres := map[string]bool{}
	seen := map[string]bool{}

	claim := func(kind, id string) error {
		key := kind + "/" + id
		if seen[key] {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[key] = true
		return nil
	}

	for _, reg := range f.Regions {
		if reg.Name == "" {
			return out, fmt.Errorf("region %q: name is required", reg.ID)
		}
		if (reg.Latitude == nil) != (reg.Longitude == nil) {
			return out, fmt.Errorf("region %q: latitude and longitude must be set together", reg.Name)
		}
		regionID := orSlug(reg.ID, reg.Name)
		if err := claim("region", regionID); err != nil {
			return out, err
		}
		row := store.Region{ID: regionID, Name: reg.Name, Country: reg.Country, Description: null(reg.Description)}
		if reg.Latitude != nil {
			row.Latitude = sql.NullFloat64{Float64: *reg.Latitude, Valid: true}
			row.Longitude = sql.NullFloat64{Float64: *reg.Longitude, Valid: true}
		}
		out.Regions = append(out.Regions, row)

		for _, a := range reg.Artists {
			if a.Name == "" {
				return out, fmt.Errorf("region %q: artist name is required", reg.Name)
			}
			artistID := orSlug(a.ID, a.Name)
			if err := claim("artist", artistID); err != nil {
				return out, err
			}
			out.Artists = append(out.Artists, store.Artist{
				ID:            artistID,
				Name:          a.Name,
				Bio:           null(a.Bio),
				RegionID:      null(regionID),
				IsEmerging:    a.Emerging,
				ListenerCount: a.Listeners,
				ImageURL:      null(a.ImageURL),
			})

			for _, t := range a.Tracks {
				if t.Title == "" {
					return out, fmt.Errorf("artist %q: track title is required", a.Name)
				}
				trackID := orSlug(t.ID, artistID+" "+t.Title)
				if err := claim("track", trackID); err != nil {
					return out, err
				}
				var genreID sql.NullString
				if t.Genre != "" {
					id := Slug(t.Genre)
					genreID = null(id)
					if !genres[id] {
						genres[id] = true
						out.Genres = append(out.Genres, store.Genre{ID: id, Name: t.Genre})
					}
				}
				out.Tracks = append(out.Tracks, store.Track{
					ID:              trackID,
					Title:           t.Title,
					ArtistID:        artistID,
					GenreID:         genreID,
					RegionID:        null(regionID),
					PlayCount:       t.Plays,
					CulturalContext: null(t.Context),
				})
			}
		}
	}
	return out, nil
}

// Slug lowercases s and joins its letter and digit runs with hyphens.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func orSlug(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return Slug(name)
}

func null(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
