package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

const (
	TopicFriends   = "friends"
	TopicPlaylists = "playlists"
	TopicLocations = "locations"
)

// AllTopics is what a client gets when it names none.
var AllTopics = []string{TopicFriends, TopicPlaylists, TopicLocations}

// Message is one frame sent to the client. Snapshot frames carry the full
// projection for their topic; a failed refresh still carries the last good
// projection, with Error set.
type Message struct {
	Type   string          `json:"type"`
	Topic  string          `json:"topic,omitempty"`
	Topics []string        `json:"topics,omitempty"`
	Data   any             `json:"data,omitempty"`
	Error  *view.ErrorBody `json:"error,omitempty"`
	At     time.Time       `json:"at"`
}

type FriendsWatcher interface {
	Watch(ctx context.Context, self string, fn func(social.Projection, error)) error
}

type PlaylistsWatcher interface {
	Watch(ctx context.Context, self string, fn func(playlist.Lists, error)) error
}

type LocationsWatcher interface {
	Watch(ctx context.Context, self string, fn func(*geojson.FeatureCollection, error)) error
}

// Server upgrades authenticated requests and runs the topic watchers for
// each connection.
type Server struct {
	hub       *Hub
	friends   FriendsWatcher
	playlists PlaylistsWatcher
	locations LocationsWatcher
	upgrader  websocket.Upgrader
	logger    *log.Logger
}

// NewServer builds a Server. With no origins the upgrader only accepts
// same-origin browsers; "*" accepts any origin.
func NewServer(hub *Hub, friends FriendsWatcher, playlists PlaylistsWatcher, locations LocationsWatcher, origins []string, logger *log.Logger) *Server {
	s := &Server{
		hub:       hub,
		friends:   friends,
		playlists: playlists,
		locations: locations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithPrefix("realtime"),
	}
	if len(origins) > 0 {
		s.upgrader.CheckOrigin = allowOrigins(origins)
	}
	return s
}

func allowOrigins(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

// ServeHTTP handles GET /api/v1/realtime?topics=friends,playlists.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	self, err := identity.Require(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	topics, err := ParseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Warn("websocket upgrade", "user", self, "err", err)
		return
	}

	// Watchers outlive the handler; keep the request values but not its
	// cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := newClient(s.hub, conn, self, cancel, s.logger)
	if !s.hub.join(c) {
		return
	}
	go c.writePump()
	go c.readPump()

	s.send(c, Message{Type: "welcome", Topics: topics})
	for _, t := range topics {
		go s.watch(ctx, c, t)
	}
}

// ParseTopics splits a comma-separated topic list. Empty means every topic.
func ParseTopics(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return AllTopics, nil
	}
	seen := map[string]bool{}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		switch t {
		case TopicFriends, TopicPlaylists, TopicLocations:
		case "":
			continue
		default:
			return nil, fmt.Errorf("%w: unknown topic %q", store.ErrValidation, t)
		}
		if !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics, nil
}

func (s *Server) watch(ctx context.Context, c *Client, topic string) {
	var err error
	switch topic {
	case TopicFriends:
		err = s.friends.Watch(ctx, c.userID, func(p social.Projection, err error) {
			s.snapshot(c, topic, view.NewFriends(p), err)
		})
	case TopicPlaylists:
		err = s.playlists.Watch(ctx, c.userID, func(l playlist.Lists, err error) {
			s.snapshot(c, topic, view.NewPlaylists(l), err)
		})
	case TopicLocations:
		err = s.locations.Watch(ctx, c.userID, func(fc *geojson.FeatureCollection, err error) {
			s.snapshot(c, topic, fc, err)
		})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("realtime watch ended", "user", c.userID, "topic", topic, "err", err)
		_, body := view.Error(err)
		s.send(c, Message{Type: "error", Topic: topic, Error: &body})
	}
}

func (s *Server) snapshot(c *Client, topic string, data any, err error) {
	msg := Message{Type: "snapshot", Topic: topic, Data: data}
	if err != nil {
		s.logger.Warn("refreshing realtime snapshot", "user", c.userID, "topic", topic, "err", err)
		_, body := view.Error(err)
		msg.Error = &body
	}
	s.send(c, msg)
}

func (s *Server) send(c *Client, msg Message) {
	msg.At = time.Now().UTC()
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding realtime message", "topic", msg.Topic, "err", err)
		return
	}
	c.enqueue(b)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := view.Error(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
