package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/profile"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

var errLocationRequired = fmt.Errorf("%w: latitude and longitude are required", store.ErrValidation)

type profilesHandler struct {
	responder
	profiles *profile.Service
	social   *social.Manager
}

func registerProfileRoutes(r chi.Router, ps *profile.Service, sm *social.Manager, rs responder) {
	h := &profilesHandler{responder: rs, profiles: ps, social: sm}
	r.Get("/me", h.Me)
	r.Put("/me/location", h.UpdateLocation)
	r.Get("/me/nearest-region", h.NearestRegion)
	r.Get("/profiles/locations", h.Locations)
	r.Get("/profiles/search", h.Search)
}

// GET /api/v1/me
func (h *profilesHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.profiles.Me(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewMe(u))
}

// PUT /api/v1/me/location
func (h *profilesHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationBody
	if !h.decode(w, r, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.fail(w, r, errLocationRequired)
		return
	}
	u, err := h.profiles.UpdateLocation(r.Context(), self(r), *req.Latitude, *req.Longitude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewMe(u))
}

// NearestRegion resolves the caller's stored location to a region.
// GET /api/v1/me/nearest-region
func (h *profilesHandler) NearestRegion(w http.ResponseWriter, r *http.Request) {
	m, err := h.profiles.NearestRegion(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewNearestRegion(m))
}

// Locations returns the user map as a GeoJSON FeatureCollection.
// GET /api/v1/profiles/locations
func (h *profilesHandler) Locations(w http.ResponseWriter, r *http.Request) {
	fc, err := h.profiles.Locations(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(fc)
}

// Search finds other users by display name for the add-friend flow.
// GET /api/v1/profiles/search?q=
func (h *profilesHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.social.SearchProfiles(r.Context(), self(r), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewProfiles(users))
}
