// Package playlist manages playlist ownership, ordered membership and
// read-only sharing grants.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joestump/frequency/internal/feed"
	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/metrics"
	"github.com/joestump/frequency/internal/projection"
	"github.com/joestump/frequency/internal/store"
)

var errUserRequired = fmt.Errorf("%w: user is required", store.ErrValidation)

// Summary is a playlist with its derived fields. Region and Owner are nil
// when the playlist has none or the lookup failed.
type Summary struct {
	Playlist   *store.Playlist
	Region     *store.Region
	Owner      *store.User
	TrackCount int
}

// Entry is one membership row with its catalog rows attached.
type Entry struct {
	Membership *store.PlaylistTrack
	Track      *store.Track
	Artist     *store.Artist
	Genre      *store.Genre
}

// Grant is a share with the grantee's profile, nil if unavailable.
type Grant struct {
	Share   *store.PlaylistShare
	Profile *store.User
}

// Lists is the playlists projection for one user.
type Lists struct {
	Owned  []Summary
	Shared []Summary
}

type Manager struct {
	playlists *store.PlaylistStore
	catalog   *store.CatalogStore
	users     *store.UserStore
	feed      feed.Feed
	cache     *projection.Cache[Lists]
	logger    *log.Logger
}

func NewManager(ps *store.PlaylistStore, cs *store.CatalogStore, us *store.UserStore, f feed.Feed, logger *log.Logger) *Manager {
	return &Manager{
		playlists: ps,
		catalog:   cs,
		users:     us,
		feed:      f,
		cache:     projection.NewCache[Lists](),
		logger:    logger.WithPrefix("playlist"),
	}
}

func normalize(in store.PlaylistInput) (store.PlaylistInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, store.ErrEmptyName
	}
	in.Description = strings.TrimSpace(in.Description)
	in.RegionID = strings.TrimSpace(in.RegionID)
	return in, nil
}

// Create makes a new playlist owned by self.
func (m *Manager) Create(ctx context.Context, self string, in store.PlaylistInput) (*store.Playlist, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	p, err := m.playlists.Create(ctx, self, in)
	m.count("create", err)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, feed.TablePlaylists, feed.OpInsert, p.ID, self)
	return p, nil
}

// Update changes name, description and visibility. Owner only.
func (m *Manager) Update(ctx context.Context, self, playlistID string, in store.PlaylistInput) (*store.Playlist, error) {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return nil, err
	}
	in, err = normalize(in)
	if err != nil {
		return nil, err
	}
	updated, err := m.playlists.Update(ctx, p.ID, in)
	m.count("update", err)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, feed.TablePlaylists, feed.OpUpdate, p.ID, m.audience(ctx, p)...)
	return updated, nil
}

// Delete removes the playlist with its memberships and shares. Owner only.
func (m *Manager) Delete(ctx context.Context, self, playlistID string) error {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return err
	}
	// Grantees have to be collected before the cascade removes them.
	audience := m.audience(ctx, p)
	err = m.playlists.Delete(ctx, p.ID)
	m.count("delete", err)
	if err != nil {
		return err
	}
	m.publish(ctx, feed.TablePlaylists, feed.OpDelete, p.ID, audience...)
	return nil
}

// AddTrack appends trackID after the current highest position. Positions
// freed by RemoveTrack are not reused. Owner only.
func (m *Manager) AddTrack(ctx context.Context, self, playlistID, trackID string) (*store.PlaylistTrack, error) {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return nil, err
	}
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, fmt.Errorf("%w: track is required", store.ErrValidation)
	}

	exists, err := m.playlists.HasTrack(ctx, p.ID, trackID)
	if err != nil {
		return nil, err
	}
	if exists {
		m.count("add_track", store.ErrDuplicateTrack)
		return nil, store.ErrDuplicateTrack
	}
	pos, err := m.playlists.NextPosition(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	pt, err := m.playlists.AddTrack(ctx, p.ID, trackID, pos)
	m.count("add_track", err)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, feed.TablePlaylistTracks, feed.OpInsert, pt.ID, m.audience(ctx, p)...)
	return pt, nil
}

// RemoveTrack drops trackID from the playlist without renumbering the rest.
// Owner only; a track that is not a member is ErrNotFound.
func (m *Manager) RemoveTrack(ctx context.Context, self, playlistID, trackID string) error {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return err
	}
	err = m.playlists.RemoveTrack(ctx, p.ID, trackID)
	m.count("remove_track", err)
	if err != nil {
		return err
	}
	m.publish(ctx, feed.TablePlaylistTracks, feed.OpDelete, p.ID+":"+trackID, m.audience(ctx, p)...)
	return nil
}

// Share grants userID read access. Owner only.
func (m *Manager) Share(ctx context.Context, self, playlistID, userID string) (*store.PlaylistShare, error) {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	switch userID {
	case "":
		return nil, errUserRequired
	case self:
		return nil, store.ErrSelfTarget
	}
	sh, err := m.playlists.AddShare(ctx, p.ID, userID)
	m.count("share", err)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, feed.TablePlaylistShares, feed.OpInsert, sh.ID, self, userID)
	return sh, nil
}

// Unshare revokes userID's grant. Owner only.
func (m *Manager) Unshare(ctx context.Context, self, playlistID, userID string) error {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return err
	}
	err = m.playlists.RemoveShare(ctx, p.ID, userID)
	m.count("unshare", err)
	if err != nil {
		return err
	}
	m.publish(ctx, feed.TablePlaylistShares, feed.OpDelete, p.ID+":"+userID, self, userID)
	return nil
}

// Shares lists the grants on a playlist with grantee profiles. Owner only.
func (m *Manager) Shares(ctx context.Context, self, playlistID string) ([]Grant, error) {
	p, err := m.owned(ctx, self, playlistID)
	if err != nil {
		return nil, err
	}
	shares, err := m.playlists.ListShares(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(shares))
	for i, sh := range shares {
		ids[i] = sh.SharedWithUserID
	}
	profiles := m.profiles(ctx, ids)
	grants := make([]Grant, len(shares))
	for i, sh := range shares {
		grants[i] = Grant{Share: sh, Profile: profiles[sh.SharedWithUserID]}
	}
	return grants, nil
}

// Get returns one playlist visible to self.
func (m *Manager) Get(ctx context.Context, self, playlistID string) (Summary, error) {
	p, err := m.visible(ctx, self, playlistID)
	if err != nil {
		return Summary{}, err
	}
	summaries, err := m.summarize(ctx, []*store.Playlist{p})
	if err != nil {
		return Summary{}, err
	}
	return summaries[0], nil
}

// Tracks returns the playlist's entries ordered by position. The owner,
// grantees and, for public playlists, everyone may read them.
func (m *Manager) Tracks(ctx context.Context, self, playlistID string) ([]Entry, error) {
	p, err := m.visible(ctx, self, playlistID)
	if err != nil {
		return nil, err
	}
	rows, err := m.playlists.ListTracks(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, len(rows))
	for i, r := range rows {
		trackIDs[i] = r.TrackID
	}
	tracks, err := m.catalog.ListTracksByIDs(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	byTrack := make(map[string]*store.Track, len(tracks))
	var artistIDs, genreIDs []string
	for _, t := range tracks {
		byTrack[t.ID] = t
		artistIDs = append(artistIDs, t.ArtistID)
		if t.GenreID.Valid {
			genreIDs = append(genreIDs, t.GenreID.String)
		}
	}
	artists := make(map[string]*store.Artist)
	if list, err := m.catalog.ListArtistsByIDs(ctx, dedupe(artistIDs)); err == nil {
		for _, a := range list {
			artists[a.ID] = a
		}
	} else {
		m.logger.Warn("loading playlist artists", "playlist", p.ID, "err", err)
	}
	genres := make(map[string]*store.Genre)
	if list, err := m.catalog.ListGenresByIDs(ctx, dedupe(genreIDs)); err == nil {
		for _, g := range list {
			genres[g.ID] = g
		}
	} else {
		m.logger.Warn("loading playlist genres", "playlist", p.ID, "err", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		e := Entry{Membership: r, Track: byTrack[r.TrackID]}
		if e.Track != nil {
			e.Artist = artists[e.Track.ArtistID]
			if e.Track.GenreID.Valid {
				e.Genre = genres[e.Track.GenreID.String]
			}
		}
		entries[i] = e
	}
	return entries, nil
}

// ListOwned returns self's playlists, newest first, with track counts.
func (m *Manager) ListOwned(ctx context.Context, self string) ([]Summary, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	owned, err := m.playlists.ListByOwner(ctx, self)
	if err != nil {
		return nil, err
	}
	return m.summarize(ctx, owned)
}

// ListShared returns playlists other users have shared with self.
func (m *Manager) ListShared(ctx context.Context, self string) ([]Summary, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	shares, err := m.playlists.ListSharesForUser(ctx, self)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(shares))
	for i, sh := range shares {
		ids[i] = sh.PlaylistID
	}
	shared, err := m.playlists.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return m.summarize(ctx, shared)
}

// Lists returns both lists. After a successful load, a failing refresh
// returns the previous lists together with the error.
func (m *Manager) Lists(ctx context.Context, self string) (Lists, error) {
	if err := identity.Check(self); err != nil {
		return Lists{}, err
	}
	l, _, err := m.cache.Load(ctx, self, func(ctx context.Context) (Lists, error) {
		start := time.Now()
		defer func() {
			metrics.SnapshotDuration.WithLabelValues("playlists").Observe(time.Since(start).Seconds())
		}()
		owned, err := m.ListOwned(ctx, self)
		if err != nil {
			return Lists{}, err
		}
		shared, err := m.ListShared(ctx, self)
		if err != nil {
			return Lists{}, err
		}
		return Lists{Owned: owned, Shared: shared}, nil
	})
	return l, err
}

// Forget releases self's cached lists.
func (m *Manager) Forget(self string) {
	m.cache.Forget(self)
}

// Watch sends self's lists to fn once, then after every playlist,
// membership or share change that concerns self, until ctx ends.
func (m *Manager) Watch(ctx context.Context, self string, fn func(Lists, error)) error {
	if err := identity.Check(self); err != nil {
		return err
	}
	tables := []string{feed.TablePlaylists, feed.TablePlaylistTracks, feed.TablePlaylistShares}
	return projection.Watch(ctx, m.feed, self, tables,
		func(ctx context.Context) (Lists, error) { return m.Lists(ctx, self) }, fn)
}

// summarize attaches track counts, regions and owners. Counts come from a
// second query merged by playlist id; a failed region or owner lookup
// leaves those fields nil.
func (m *Manager) summarize(ctx context.Context, playlists []*store.Playlist) ([]Summary, error) {
	ids := make([]string, len(playlists))
	var regionIDs, ownerIDs []string
	for i, p := range playlists {
		ids[i] = p.ID
		ownerIDs = append(ownerIDs, p.UserID)
		if p.RegionID.Valid {
			regionIDs = append(regionIDs, p.RegionID.String)
		}
	}
	counts, err := m.playlists.CountTracks(ctx, ids)
	if err != nil {
		return nil, err
	}
	regions := make(map[string]*store.Region)
	if list, err := m.catalog.ListRegionsByIDs(ctx, dedupe(regionIDs)); err == nil {
		for _, r := range list {
			regions[r.ID] = r
		}
	} else {
		m.logger.Warn("loading playlist regions", "err", err)
	}
	owners := m.profiles(ctx, dedupe(ownerIDs))

	out := make([]Summary, len(playlists))
	for i, p := range playlists {
		s := Summary{Playlist: p, Owner: owners[p.UserID], TrackCount: counts[p.ID]}
		if p.RegionID.Valid {
			s.Region = regions[p.RegionID.String]
		}
		out[i] = s
	}
	return out, nil
}

func (m *Manager) profiles(ctx context.Context, ids []string) map[string]*store.User {
	out := make(map[string]*store.User, len(ids))
	users, err := m.users.ListByIDs(ctx, ids)
	if err != nil {
		m.logger.Warn("loading profiles", "err", err)
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

// owned loads playlistID and requires self to own it.
func (m *Manager) owned(ctx context.Context, self, playlistID string) (*store.Playlist, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	p, err := m.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.UserID != self {
		return nil, store.ErrNotOwner
	}
	return p, nil
}

// visible loads playlistID if self may read it. Private playlists that are
// not shared with self look missing.
func (m *Manager) visible(ctx context.Context, self, playlistID string) (*store.Playlist, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	p, err := m.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.UserID == self || p.IsPublic {
		return p, nil
	}
	shared, err := m.playlists.HasShare(ctx, p.ID, self)
	if err != nil {
		return nil, err
	}
	if !shared {
		return nil, store.ErrNotFound
	}
	return p, nil
}

// audience is the owner plus every grantee of p.
func (m *Manager) audience(ctx context.Context, p *store.Playlist) []string {
	ids := []string{p.UserID}
	shares, err := m.playlists.ListShares(ctx, p.ID)
	if err != nil {
		m.logger.Warn("loading playlist audience", "playlist", p.ID, "err", err)
		return ids
	}
	for _, sh := range shares {
		ids = append(ids, sh.SharedWithUserID)
	}
	return ids
}

func (m *Manager) count(op string, err error) {
	metrics.PlaylistOpsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
}

func (m *Manager) publish(ctx context.Context, table string, op feed.Op, id string, userIDs ...string) {
	if err := m.feed.Publish(ctx, feed.New(table, op, id, userIDs...)); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("publishing playlist change", "table", table, "id", id, "err", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
