// Package view holds the JSON shapes returned by the HTTP API and pushed
// over the realtime socket, and the conversions from store rows and
// manager projections.
package view

import (
	"database/sql"
	"time"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
)

// --- Profile types ---

// Profile is the public face of a user. Credentials are never included.
type Profile struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Latitude    *float64 `json:"current_latitude"`
	Longitude   *float64 `json:"current_longitude"`
}

// Me is the signed-in user's own profile.
type Me struct {
	Profile
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Social types ---

type FriendRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Friend struct {
	EdgeID    string    `json:"edge_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Profile   *Profile  `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

type Friends struct {
	Accepted        []Friend `json:"accepted"`
	PendingIncoming []Friend `json:"pending_incoming"`
}

// --- Catalog types ---

type Region struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Country     string   `json:"country"`
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Artist struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Bio           string  `json:"bio,omitempty"`
	RegionID      string  `json:"region_id,omitempty"`
	IsEmerging    bool    `json:"is_emerging"`
	ListenerCount int64   `json:"listener_count"`
	ImageURL      string  `json:"image_url,omitempty"`
	Region        *Region `json:"region,omitempty"`
}

type Track struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	ArtistID        string  `json:"artist_id"`
	GenreID         string  `json:"genre_id,omitempty"`
	RegionID        string  `json:"region_id,omitempty"`
	PlayCount       int64   `json:"play_count"`
	CulturalContext string  `json:"cultural_context,omitempty"`
	Artist          *Artist `json:"artist,omitempty"`
	Genre           *Genre  `json:"genre,omitempty"`
}

// RegionArtists is the discovery tab split of one region's artists.
type RegionArtists struct {
	Emerging []Artist `json:"emerging"`
	Popular  []Artist `json:"popular"`
}

type NearestRegion struct {
	Region     Region `json:"region"`
	DistanceKm int    `json:"distance_km"`
}

// --- Playlist types ---

type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RegionID    string    `json:"region_id,omitempty"`
	IsPublic    bool      `json:"is_public"`
	TrackCount  int       `json:"track_count"`
	Region      *Region   `json:"region,omitempty"`
	Owner       *Profile  `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Playlists struct {
	Owned  []Playlist `json:"owned"`
	Shared []Playlist `json:"shared"`
}

type PlaylistTrack struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	TrackID    string    `json:"track_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
	Track      *Track    `json:"track,omitempty"`
}

type Share struct {
	ID               string    `json:"id"`
	PlaylistID       string    `json:"playlist_id"`
	SharedWithUserID string    `json:"shared_with_user_id"`
	SharedAt         time.Time `json:"shared_at"`
	Profile          *Profile  `json:"profile,omitempty"`
}

// --- Conversions ---

func NewProfile(u *store.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL.String,
		Latitude:    float(u.Latitude),
		Longitude:   float(u.Longitude),
	}
}

func NewMe(u *store.User) Me {
	return Me{
		Profile:   *NewProfile(u),
		Email:     u.Email.String,
		Phone:     u.Phone.String,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func NewProfiles(users []*store.User) []Profile {
	out := make([]Profile, len(users))
	for i, u := range users {
		out[i] = *NewProfile(u)
	}
	return out
}

func NewFriendRequest(f *store.Friendship) FriendRequest {
	return FriendRequest{
		ID:        f.ID,
		UserID:    f.UserID,
		FriendID:  f.FriendID,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func NewFriends(p social.Projection) Friends {
	conv := func(in []social.Friend) []Friend {
		out := make([]Friend, len(in))
		for i, f := range in {
			out[i] = Friend{EdgeID: f.EdgeID, UserID: f.UserID, Status: f.Status, Profile: NewProfile(f.Profile), CreatedAt: f.CreatedAt}
		}
		return out
	}
	return Friends{Accepted: conv(p.Accepted), PendingIncoming: conv(p.PendingIncoming)}
}

func NewRegion(r *store.Region) *Region {
	if r == nil {
		return nil
	}
	return &Region{
		ID:          r.ID,
		Name:        r.Name,
		Country:     r.Country,
		Description: r.Description.String,
		Latitude:    float(r.Latitude),
		Longitude:   float(r.Longitude),
	}
}

func NewRegions(regions []*store.Region) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = *NewRegion(r)
	}
	return out
}

func NewGenre(g *store.Genre) *Genre {
	if g == nil {
		return nil
	}
	return &Genre{ID: g.ID, Name: g.Name}
}

func NewArtist(a *store.Artist, region *store.Region) *Artist {
	if a == nil {
		return nil
	}
	return &Artist{
		ID:            a.ID,
		Name:          a.Name,
		Bio:           a.Bio.String,
		RegionID:      a.RegionID.String,
		IsEmerging:    a.IsEmerging,
		ListenerCount: a.ListenerCount,
		ImageURL:      a.ImageURL.String,
		Region:        NewRegion(region),
	}
}

func NewArtists(artists []*store.Artist) []Artist {
	out := make([]Artist, len(artists))
	for i, a := range artists {
		out[i] = *NewArtist(a, nil)
	}
	return out
}

func NewArtistViews(views []catalog.ArtistView) []Artist {
	out := make([]Artist, len(views))
	for i, v := range views {
		out[i] = *NewArtist(v.Artist, v.Region)
	}
	return out
}

func NewTrack(t *store.Track, a *store.Artist, g *store.Genre) *Track {
	if t == nil {
		return nil
	}
	return &Track{
		ID:              t.ID,
		Title:           t.Title,
		ArtistID:        t.ArtistID,
		GenreID:         t.GenreID.String,
		RegionID:        t.RegionID.String,
		PlayCount:       t.PlayCount,
		CulturalContext: t.CulturalContext.String,
		Artist:          NewArtist(a, nil),
		Genre:           NewGenre(g),
	}
}

func NewTrackViews(views []catalog.TrackView) []Track {
	out := make([]Track, len(views))
	for i, v := range views {
		out[i] = *NewTrack(v.Track, v.Artist, v.Genre)
	}
	return out
}

func NewNearestRegion(m catalog.NearestMatch) NearestRegion {
	return NearestRegion{Region: *NewRegion(m.Region), DistanceKm: m.DistanceKm}
}

// NewPlaylist converts a bare playlist row; use NewSummary when the derived
// fields are known.
func NewPlaylist(p *store.Playlist) Playlist {
	return Playlist{
		ID:          p.ID,
		OwnerID:     p.UserID,
		Name:        p.Name,
		Description: p.Description.String,
		RegionID:    p.RegionID.String,
		IsPublic:    p.IsPublic,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func NewSummary(s playlist.Summary) Playlist {
	p := NewPlaylist(s.Playlist)
	p.TrackCount = s.TrackCount
	p.Region = NewRegion(s.Region)
	p.Owner = NewProfile(s.Owner)
	return p
}

func NewSummaries(in []playlist.Summary) []Playlist {
	out := make([]Playlist, len(in))
	for i, s := range in {
		out[i] = NewSummary(s)
	}
	return out
}

func NewPlaylists(l playlist.Lists) Playlists {
	return Playlists{Owned: NewSummaries(l.Owned), Shared: NewSummaries(l.Shared)}
}

func NewPlaylistTrack(m *store.PlaylistTrack) PlaylistTrack {
	return PlaylistTrack{
		ID:         m.ID,
		PlaylistID: m.PlaylistID,
		TrackID:    m.TrackID,
		Position:   m.Position,
		AddedAt:    m.AddedAt,
	}
}

func NewEntries(entries []playlist.Entry) []PlaylistTrack {
	out := make([]PlaylistTrack, len(entries))
	for i, e := range entries {
		pt := NewPlaylistTrack(e.Membership)
		pt.Track = NewTrack(e.Track, e.Artist, e.Genre)
		out[i] = pt
	}
	return out
}

func NewShare(sh *store.PlaylistShare, u *store.User) Share {
	return Share{
		ID:               sh.ID,
		PlaylistID:       sh.PlaylistID,
		SharedWithUserID: sh.SharedWithUserID,
		SharedAt:         sh.SharedAt,
		Profile:          NewProfile(u),
	}
}

func NewGrants(grants []playlist.Grant) []Share {
	out := make([]Share, len(grants))
	for i, g := range grants {
		out[i] = NewShare(g.Share, g.Profile)
	}
	return out
}

func float(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
