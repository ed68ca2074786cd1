package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/view"
)

type friendsHandler struct {
	responder
	social *social.Manager
}

func registerFriendRoutes(r chi.Router, m *social.Manager, rs responder) {
	h := &friendsHandler{responder: rs, social: m}
	r.Get("/friends", h.List)
	r.Post("/friends/requests", h.Send)
	r.Post("/friends/requests/{id}/accept", h.Accept)
	r.Delete("/friends/requests/{id}", h.Reject)
	r.Delete("/friends/{id}", h.Remove)
}

// List returns accepted friends and incoming requests.
// GET /api/v1/friends
func (h *friendsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := h.social.List(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewFriends(p))
}

// Send creates a pending request to another user.
// POST /api/v1/friends/requests
func (h *friendsHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req FriendRequestBody
	if !h.decode(w, r, &req) {
		return
	}
	edge, err := h.social.SendRequest(r.Context(), self(r), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewFriendRequest(edge))
}

// Accept turns a pending request addressed to the caller into a friendship.
// POST /api/v1/friends/requests/{id}/accept
func (h *friendsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if err := h.social.AcceptRequest(r.Context(), self(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reject deletes a pending request.
// DELETE /api/v1/friends/requests/{id}
func (h *friendsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.social.RejectRequest(r.Context(), self(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove ends a friendship. Either party may call it.
// DELETE /api/v1/friends/{id}
func (h *friendsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.social.RemoveFriend(r.Context(), self(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
