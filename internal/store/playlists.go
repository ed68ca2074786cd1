package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Playlist is a row in the playlists table.
type Playlist struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	RegionID    sql.NullString `db:"region_id"`
	IsPublic    bool           `db:"is_public"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// PlaylistTrack is a membership row. Positions are assigned on insert and
// never renumbered, so gaps are normal.
type PlaylistTrack struct {
	ID         string    `db:"id"`
	PlaylistID string    `db:"playlist_id"`
	TrackID    string    `db:"track_id"`
	Position   int       `db:"position"`
	AddedAt    time.Time `db:"added_at"`
}

// PlaylistShare grants SharedWithUserID read access to PlaylistID.
type PlaylistShare struct {
	ID               string    `db:"id"`
	PlaylistID       string    `db:"playlist_id"`
	SharedWithUserID string    `db:"shared_with_user_id"`
	SharedAt         time.Time `db:"shared_at"`
}

// PlaylistInput carries the editable playlist fields. Empty Description and
// RegionID are stored as NULL.
type PlaylistInput struct {
	Name        string
	Description string
	RegionID    string
	IsPublic    bool
}

type PlaylistStore struct {
	db *sqlx.DB
}

func NewPlaylistStore(db *sqlx.DB) *PlaylistStore {
	return &PlaylistStore{db: db}
}

func (s *PlaylistStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a playlist owned by ownerID. Name validation belongs to
// the caller; an unknown region fails with ErrNotFound.
func (s *PlaylistStore) Create(ctx context.Context, ownerID string, input PlaylistInput) (*Playlist, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO playlists (id, user_id, name, description, region_id, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), id, ownerID, input.Name, nullString(input.Description), nullString(input.RegionID), input.IsPublic, now, now)
	if err != nil {
		return nil, classifyWrite(err, ErrConflict)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the playlist with id, or ErrNotFound.
func (s *PlaylistStore) GetByID(ctx context.Context, id string) (*Playlist, error) {
	var p Playlist
	if err := s.db.GetContext(ctx, &p, s.q(`SELECT * FROM playlists WHERE id = ?`), id); err != nil {
		return nil, Classify(err)
	}
	return &p, nil
}

// Update rewrites name, description and visibility. The region association
// is fixed at creation.
func (s *PlaylistStore) Update(ctx context.Context, id string, input PlaylistInput) (*Playlist, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE playlists SET name = ?, description = ?, is_public = ?, updated_at = ? WHERE id = ?
	`), input.Name, nullString(input.Description), input.IsPublic, time.Now().UTC(), id)
	if err != nil {
		return nil, Classify(err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the playlist. Memberships and shares go with it through
// ON DELETE CASCADE.
func (s *PlaylistStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM playlists WHERE id = ?`), id)
	if err != nil {
		return Classify(err)
	}
	return affected(res)
}

// ListByOwner returns ownerID's playlists, newest first.
func (s *PlaylistStore) ListByOwner(ctx context.Context, ownerID string) ([]*Playlist, error) {
	var playlists []*Playlist
	err := s.db.SelectContext(ctx, &playlists, s.q(`
		SELECT * FROM playlists WHERE user_id = ? ORDER BY created_at DESC, id DESC
	`), ownerID)
	if err != nil {
		return nil, Classify(err)
	}
	return playlists, nil
}

// ListByIDs returns the playlists whose ids are in ids, newest first.
func (s *PlaylistStore) ListByIDs(ctx context.Context, ids []string) ([]*Playlist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := in(s.db, `SELECT * FROM playlists WHERE id IN (?) ORDER BY created_at DESC, id DESC`, ids)
	if err != nil {
		return nil, Classify(err)
	}
	var playlists []*Playlist
	if err := s.db.SelectContext(ctx, &playlists, query, args...); err != nil {
		return nil, Classify(err)
	}
	return playlists, nil
}

// CountTracks returns the membership count per playlist id. Playlists with
// no tracks are absent from the map.
func (s *PlaylistStore) CountTracks(ctx context.Context, playlistIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(playlistIDs))
	if len(playlistIDs) == 0 {
		return counts, nil
	}
	query, args, err := in(s.db, `
		SELECT playlist_id, COUNT(*) AS n FROM playlist_tracks
		WHERE playlist_id IN (?)
		GROUP BY playlist_id
	`, playlistIDs)
	if err != nil {
		return nil, Classify(err)
	}
	var rows []struct {
		PlaylistID string `db:"playlist_id"`
		N          int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, Classify(err)
	}
	for _, r := range rows {
		counts[r.PlaylistID] = r.N
	}
	return counts, nil
}

// HasTrack reports whether trackID is already a member of playlistID.
func (s *PlaylistStore) HasTrack(ctx context.Context, playlistID, trackID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?
	`), playlistID, trackID)
	if err != nil {
		return false, Classify(err)
	}
	return n > 0, nil
}

// NextPosition returns the highest position in the playlist plus one, or 0
// for an empty playlist. Freed positions are never reused.
func (s *PlaylistStore) NextPosition(ctx context.Context, playlistID string) (int, error) {
	var maxPos sql.NullInt64
	err := s.db.GetContext(ctx, &maxPos, s.q(`
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?
	`), playlistID)
	if err != nil {
		return 0, Classify(err)
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

// AddTrack inserts a membership row at position. The (playlist, track)
// unique index turns a racing duplicate into ErrDuplicateTrack.
func (s *PlaylistStore) AddTrack(ctx context.Context, playlistID, trackID string, position int) (*PlaylistTrack, error) {
	pt := &PlaylistTrack{
		ID:         uuid.New().String(),
		PlaylistID: playlistID,
		TrackID:    trackID,
		Position:   position,
		AddedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO playlist_tracks (id, playlist_id, track_id, position, added_at)
		VALUES (?, ?, ?, ?, ?)
	`), pt.ID, pt.PlaylistID, pt.TrackID, pt.Position, pt.AddedAt)
	if err != nil {
		return nil, classifyWrite(err, ErrDuplicateTrack)
	}
	return pt, nil
}

// RemoveTrack deletes one membership row, or returns ErrNotFound.
func (s *PlaylistStore) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?
	`), playlistID, trackID)
	if err != nil {
		return Classify(err)
	}
	return affected(res)
}

// ListTracks returns the playlist's membership rows ordered by position.
func (s *PlaylistStore) ListTracks(ctx context.Context, playlistID string) ([]*PlaylistTrack, error) {
	var rows []*PlaylistTrack
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT * FROM playlist_tracks WHERE playlist_id = ? ORDER BY position ASC
	`), playlistID)
	if err != nil {
		return nil, Classify(err)
	}
	return rows, nil
}

// AddShare grants userID read access. A second grant for the same pair
// returns ErrAlreadyShared; an unknown user returns ErrNotFound.
func (s *PlaylistStore) AddShare(ctx context.Context, playlistID, userID string) (*PlaylistShare, error) {
	sh := &PlaylistShare{
		ID:               uuid.New().String(),
		PlaylistID:       playlistID,
		SharedWithUserID: userID,
		SharedAt:         time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO playlist_shares (id, playlist_id, shared_with_user_id, shared_at)
		VALUES (?, ?, ?, ?)
	`), sh.ID, sh.PlaylistID, sh.SharedWithUserID, sh.SharedAt)
	if err != nil {
		return nil, classifyWrite(err, ErrAlreadyShared)
	}
	return sh, nil
}

// RemoveShare revokes a grant, or returns ErrNotFound.
func (s *PlaylistStore) RemoveShare(ctx context.Context, playlistID, userID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM playlist_shares WHERE playlist_id = ? AND shared_with_user_id = ?
	`), playlistID, userID)
	if err != nil {
		return Classify(err)
	}
	return affected(res)
}

// HasShare reports whether playlistID is shared with userID.
func (s *PlaylistStore) HasShare(ctx context.Context, playlistID, userID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`
		SELECT COUNT(*) FROM playlist_shares WHERE playlist_id = ? AND shared_with_user_id = ?
	`), playlistID, userID)
	if err != nil {
		return false, Classify(err)
	}
	return n > 0, nil
}

// ListShares returns the grants on playlistID, oldest first.
func (s *PlaylistStore) ListShares(ctx context.Context, playlistID string) ([]*PlaylistShare, error) {
	var shares []*PlaylistShare
	err := s.db.SelectContext(ctx, &shares, s.q(`
		SELECT * FROM playlist_shares WHERE playlist_id = ? ORDER BY shared_at ASC, id ASC
	`), playlistID)
	if err != nil {
		return nil, Classify(err)
	}
	return shares, nil
}

// ListSharesForUser returns the grants naming userID, newest first.
func (s *PlaylistStore) ListSharesForUser(ctx context.Context, userID string) ([]*PlaylistShare, error) {
	var shares []*PlaylistShare
	err := s.db.SelectContext(ctx, &shares, s.q(`
		SELECT * FROM playlist_shares WHERE shared_with_user_id = ? ORDER BY shared_at DESC, id DESC
	`), userID)
	if err != nil {
		return nil, Classify(err)
	}
	return shares, nil
}
