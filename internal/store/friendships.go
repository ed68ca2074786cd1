package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship is a directed edge from requester (UserID) to recipient
// (FriendID). An accepted edge counts as a friendship for both parties.
type Friendship struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	FriendID  string    `db:"friend_id"`
	PairKey   string    `db:"pair_key"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Involves reports whether userID is either party of the edge.
func (f *Friendship) Involves(userID string) bool {
	return f.UserID == userID || f.FriendID == userID
}

// Counterpart returns the party of the edge that is not self.
func (f *Friendship) Counterpart(self string) string {
	if f.UserID == self {
		return f.FriendID
	}
	return f.UserID
}

// PairKey orders the two ids so (a, b) and (b, a) share a key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

type FriendshipStore struct {
	db *sqlx.DB
}

func NewFriendshipStore(db *sqlx.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

func (s *FriendshipStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a pending edge. ErrDuplicateEdge is returned when any
// edge already joins the two users, whichever direction it points.
func (s *FriendshipStore) Create(ctx context.Context, requester, recipient string) (*Friendship, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO friendships (id, user_id, friend_id, pair_key, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), id, requester, recipient, PairKey(requester, recipient), StatusPending, now, now)
	if err != nil {
		return nil, classifyWrite(err, ErrDuplicateEdge)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the edge with id, or ErrNotFound.
func (s *FriendshipStore) GetByID(ctx context.Context, id string) (*Friendship, error) {
	var f Friendship
	if err := s.db.GetContext(ctx, &f, s.q(`SELECT * FROM friendships WHERE id = ?`), id); err != nil {
		return nil, Classify(err)
	}
	return &f, nil
}

// Accept moves a pending edge to accepted. Edges that are already accepted
// are left untouched.
func (s *FriendshipStore) Accept(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE friendships SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`), StatusAccepted, time.Now().UTC(), id, StatusPending)
	return Classify(err)
}

// Delete removes the edge regardless of status.
func (s *FriendshipStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM friendships WHERE id = ?`), id)
	if err != nil {
		return Classify(err)
	}
	return affected(res)
}

// ListForUser returns every edge where userID is requester or recipient,
// oldest first.
func (s *FriendshipStore) ListForUser(ctx context.Context, userID string) ([]*Friendship, error) {
	var edges []*Friendship
	err := s.db.SelectContext(ctx, &edges, s.q(`
		SELECT * FROM friendships
		WHERE user_id = ? OR friend_id = ?
		ORDER BY created_at ASC, id ASC
	`), userID, userID)
	if err != nil {
		return nil, Classify(err)
	}
	return edges, nil
}
