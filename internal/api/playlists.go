package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

type playlistsHandler struct {
	responder
	playlists *playlist.Manager
}

func registerPlaylistRoutes(r chi.Router, m *playlist.Manager, rs responder) {
	h := &playlistsHandler{responder: rs, playlists: m}
	r.Get("/playlists", h.List)
	r.Post("/playlists", h.Create)
	r.Route("/playlists/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)

		r.Get("/tracks", h.Tracks)
		r.Post("/tracks", h.AddTrack)
		r.Delete("/tracks/{trackID}", h.RemoveTrack)

		r.Get("/shares", h.Shares)
		r.Post("/shares", h.Share)
		r.Delete("/shares/{userID}", h.Unshare)
	})
}

// List returns the caller's own playlists and those shared with them.
// GET /api/v1/playlists
func (h *playlistsHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.playlists.Lists(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewPlaylists(lists))
}

// POST /api/v1/playlists
func (h *playlistsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PlaylistBody
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.playlists.Create(r.Context(), self(r), store.PlaylistInput{
		Name:        req.Name,
		Description: req.Description,
		RegionID:    req.RegionID,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewPlaylist(p))
}

// GET /api/v1/playlists/{id}
func (h *playlistsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.playlists.Get(r.Context(), self(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewSummary(s))
}

// Update replaces name, description and visibility. The region is kept.
// PUT /api/v1/playlists/{id}
func (h *playlistsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req PlaylistBody
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.playlists.Update(r.Context(), self(r), chi.URLParam(r, "id"), store.PlaylistInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewPlaylist(p))
}

// DELETE /api/v1/playlists/{id}
func (h *playlistsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.playlists.Delete(r.Context(), self(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tracks returns members in position order with catalog rows attached.
// GET /api/v1/playlists/{id}/tracks
func (h *playlistsHandler) Tracks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.playlists.Tracks(r.Context(), self(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewEntries(entries))
}

// POST /api/v1/playlists/{id}/tracks
func (h *playlistsHandler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var req AddTrackBody
	if !h.decode(w, r, &req) {
		return
	}
	pt, err := h.playlists.AddTrack(r.Context(), self(r), chi.URLParam(r, "id"), req.TrackID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewPlaylistTrack(pt))
}

// DELETE /api/v1/playlists/{id}/tracks/{trackID}
func (h *playlistsHandler) RemoveTrack(w http.ResponseWriter, r *http.Request) {
	err := h.playlists.RemoveTrack(r.Context(), self(r), chi.URLParam(r, "id"), chi.URLParam(r, "trackID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shares lists grantees with their profiles. Owner only.
// GET /api/v1/playlists/{id}/shares
func (h *playlistsHandler) Shares(w http.ResponseWriter, r *http.Request) {
	grants, err := h.playlists.Shares(r.Context(), self(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewGrants(grants))
}

// POST /api/v1/playlists/{id}/shares
func (h *playlistsHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req ShareBody
	if !h.decode(w, r, &req) {
		return
	}
	sh, err := h.playlists.Share(r.Context(), self(r), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewShare(sh, nil))
}

// DELETE /api/v1/playlists/{id}/shares/{userID}
func (h *playlistsHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	err := h.playlists.Unshare(r.Context(), self(r), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
