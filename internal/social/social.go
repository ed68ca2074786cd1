// Package social manages the friendship graph: requests, acceptance,
// removal and the per-user friends projection.
package social

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

// SearchLimit caps SearchProfiles results.
const SearchLimit = 10

var errTargetRequired = fmt.Errorf("%w: target user is required", store.ErrValidation)

// Friend is one edge as seen by self, with the counterpart's profile. Profile
// is nil when the counterpart could not be loaded.
type Friend struct {
	EdgeID    string
	UserID    string
	Status    string
	Profile   *store.User
	CreatedAt time.Time
}

// Projection is the friends view for one user. Outgoing pending requests
// are not part of it.
type Projection struct {
	Accepted        []Friend
	PendingIncoming []Friend
}

type Manager struct {
	friendships *store.FriendshipStore
	users       *store.UserStore
	feed        feed.Feed
	cache       *projection.Cache[Projection]
	logger      *log.Logger
}

func NewManager(fs *store.FriendshipStore, us *store.UserStore, f feed.Feed, logger *log.Logger) *Manager {
	return &Manager{
		friendships: fs,
		users:       us,
		feed:        f,
		cache:       projection.NewCache[Projection](),
		logger:      logger.WithPrefix("social"),
	}
}

// SendRequest creates a pending edge from self to target. A second request
// between the same two users, in either direction, fails with
// store.ErrDuplicateEdge.
func (m *Manager) SendRequest(ctx context.Context, self, target string) (*store.Friendship, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	switch target {
	case "":
		return nil, errTargetRequired
	case self:
		return nil, store.ErrSelfTarget
	}

	edge, err := m.friendships.Create(ctx, self, target)
	metrics.FriendRequestsTotal.WithLabelValues("send", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	m.publish(ctx, feed.OpInsert, edge)
	return edge, nil
}

// AcceptRequest accepts a pending edge addressed to self. Accepting an
// edge that is already accepted succeeds without changing it.
func (m *Manager) AcceptRequest(ctx context.Context, self, edgeID string) error {
	if err := identity.Check(self); err != nil {
		return err
	}
	edge, err := m.edgeFor(ctx, self, edgeID)
	if err != nil {
		return err
	}
	if edge.FriendID != self {
		return store.ErrNotRecipient
	}
	if edge.Status == store.StatusAccepted {
		return nil
	}

	err = m.friendships.Accept(ctx, edge.ID)
	metrics.FriendRequestsTotal.WithLabelValues("accept", metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	m.publish(ctx, feed.OpUpdate, edge)
	return nil
}

// RejectRequest deletes a pending request. It is the same operation as
// RemoveFriend; the graph has no separate rejected state.
func (m *Manager) RejectRequest(ctx context.Context, self, edgeID string) error {
	return m.remove(ctx, self, edgeID, "reject")
}

// RemoveFriend deletes an edge where self is either party.
func (m *Manager) RemoveFriend(ctx context.Context, self, edgeID string) error {
	return m.remove(ctx, self, edgeID, "remove")
}

func (m *Manager) remove(ctx context.Context, self, edgeID, op string) error {
	if err := identity.Check(self); err != nil {
		return err
	}
	edge, err := m.edgeFor(ctx, self, edgeID)
	if err != nil {
		return err
	}
	err = m.friendships.Delete(ctx, edge.ID)
	metrics.FriendRequestsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	m.publish(ctx, feed.OpDelete, edge)
	return nil
}

// edgeFor loads edgeID and hides it from users who are not a party to it.
func (m *Manager) edgeFor(ctx context.Context, self, edgeID string) (*store.Friendship, error) {
	edge, err := m.friendships.GetByID(ctx, edgeID)
	if err != nil {
		return nil, err
	}
	if !edge.Involves(self) {
		return nil, store.ErrNotFound
	}
	return edge, nil
}

// List returns self's friends projection. If the store fails after an
// earlier successful load, the previous projection is returned along with
// the error.
func (m *Manager) List(ctx context.Context, self string) (Projection, error) {
	if err := identity.Check(self); err != nil {
		return Projection{}, err
	}
	p, _, err := m.cache.Load(ctx, self, func(ctx context.Context) (Projection, error) {
		return m.derive(ctx, self)
	})
	return p, err
}

// Forget releases self's cached projection, typically on sign-out.
func (m *Manager) Forget(self string) {
	m.cache.Forget(self)
}

// derive rebuilds the projection with a second query for the counterpart
// profiles, merged through an id map.
func (m *Manager) derive(ctx context.Context, self string) (Projection, error) {
	start := time.Now()
	defer func() {
		metrics.SnapshotDuration.WithLabelValues("friends").Observe(time.Since(start).Seconds())
	}()

	edges, err := m.friendships.ListForUser(ctx, self)
	if err != nil {
		return Projection{}, err
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Counterpart(self))
	}
	profiles := make(map[string]*store.User, len(ids))
	users, err := m.users.ListByIDs(ctx, ids)
	if err != nil {
		// Edges without profiles are still a valid projection.
		m.logger.Warn("loading friend profiles", "user", self, "err", err)
	}
	for _, u := range users {
		profiles[u.ID] = u
	}

	p := Projection{Accepted: []Friend{}, PendingIncoming: []Friend{}}
	for _, e := range edges {
		other := e.Counterpart(self)
		f := Friend{EdgeID: e.ID, UserID: other, Status: e.Status, Profile: profiles[other], CreatedAt: e.CreatedAt}
		switch {
		case e.Status == store.StatusAccepted:
			p.Accepted = append(p.Accepted, f)
		case e.FriendID == self:
			p.PendingIncoming = append(p.PendingIncoming, f)
		}
	}
	return p, nil
}

// Watch sends self's projection to fn once, then again after every
// friendship change involving self, until ctx ends.
func (m *Manager) Watch(ctx context.Context, self string, fn func(Projection, error)) error {
	if err := identity.Check(self); err != nil {
		return err
	}
	return projection.Watch(ctx, m.feed, self, []string{feed.TableFriendships},
		func(ctx context.Context) (Projection, error) { return m.List(ctx, self) }, fn)
}

// SearchProfiles finds other users by display name for the add-friend
// flow. Users already connected to self are not filtered out.
func (m *Manager) SearchProfiles(ctx context.Context, self, q string) ([]*store.User, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	return m.users.Search(ctx, q, self, SearchLimit)
}

func (m *Manager) publish(ctx context.Context, op feed.Op, edge *store.Friendship) {
	e := feed.New(feed.TableFriendships, op, edge.ID, edge.UserID, edge.FriendID)
	if err := m.feed.Publish(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("publishing friendship change", "edge", edge.ID, "op", op, "err", err)
	}
}
