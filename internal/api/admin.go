package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

// UserListResponse is one page of GET /api/v1/admin/users.
type UserListResponse struct {
	Users      []view.Me `json:"users"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type adminHandler struct {
	responder
	users *store.UserStore
}

// registerAdminRoutes registers admin-only routes. The caller applies the
// role check.
func registerAdminRoutes(r chi.Router, users *store.UserStore, rs responder) {
	h := &adminHandler{responder: rs, users: users}
	r.Get("/admin/users", h.ListUsers)
	r.Put("/admin/users/{id}/role", h.UpdateRole)
}

// ListUsers pages through every account ordered by display name.
// GET /api/v1/admin/users?cursor=&limit=
func (h *adminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	after, limit := parsePagination(r)
	pg, next := page(users, after, limit, func(u *store.User) string { return u.ID })

	resp := UserListResponse{Users: make([]view.Me, 0, len(pg)), NextCursor: next}
	for _, u := range pg {
		resp.Users = append(resp.Users, view.NewMe(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateRole changes a user's role. Accepts only "user" and "admin".
// PUT /api/v1/admin/users/{id}/role
func (h *adminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.users.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewMe(updated))
}
