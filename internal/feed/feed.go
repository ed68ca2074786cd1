// Package feed is the change feed keyed by table name. Managers publish an
// Event after every successful mutation; subscribers re-derive whatever
// projection depends on that table.
//
// Events carry no row payload. Consumers always re-fetch, so a dropped or
// reordered event only delays a refresh until the next one arrives.
package feed

import (
	"context"
	"errors"
	"time"
)

const (
	TableFriendships    = "friendships"
	TablePlaylists      = "playlists"
	TablePlaylistTracks = "playlist_tracks"
	TablePlaylistShares = "playlist_shares"
	TableProfiles       = "profiles"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("feed closed")

// Event announces a change to one row.
type Event struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	ID    string `json:"id"`
	// UserIDs lists the users whose projections the change affects. Empty
	// means everyone.
	UserIDs []string  `json:"user_ids,omitempty"`
	At      time.Time `json:"at"`
}

// Concerns reports whether userID should refresh on e.
func (e Event) Concerns(userID string) bool {
	if len(e.UserIDs) == 0 {
		return true
	}
	for _, id := range e.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// New builds an event stamped with the current time.
func New(table string, op Op, id string, userIDs ...string) Event {
	return Event{Table: table, Op: op, ID: id, UserIDs: userIDs, At: time.Now().UTC()}
}

// Publisher is the write side of a feed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Feed is a publish/subscribe change feed.
type Feed interface {
	Publisher
	// Subscribe delivers events for the given tables until ctx ends, then
	// closes the channel. No tables means all tables.
	Subscribe(ctx context.Context, tables ...string) (<-chan Event, error)
	Close() error
}

// subscriberBuffer is the per-subscription channel capacity. Publishers
// never block on a slow subscriber; overflow is dropped and counted.
const subscriberBuffer = 64

func wants(tables map[string]bool, table string) bool {
	return len(tables) == 0 || tables[table]
}

func tableSet(tables []string) map[string]bool {
	set := make(map[string]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	return set
}

// AllTables lists every table the service publishes on.
func AllTables() []string {
	return []string{TableFriendships, TablePlaylists, TablePlaylistTracks, TablePlaylistShares, TableProfiles}
}
