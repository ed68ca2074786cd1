package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

var (
	errNoCoordinates = fmt.Errorf("%w: no region has coordinates", store.ErrNotFound)
	errCoordFormat   = fmt.Errorf("%w: lat and lon must be numbers", store.ErrValidation)
)

type catalogHandler struct {
	responder
	reader *catalog.Reader
}

func registerCatalogRoutes(r chi.Router, reader *catalog.Reader, rs responder) {
	h := &catalogHandler{responder: rs, reader: reader}
	r.Get("/regions", h.Regions)
	r.Get("/regions/random", h.Random)
	r.Get("/regions/nearest", h.Nearest)
	r.Get("/regions/{id}", h.Region)
	r.Get("/regions/{id}/tracks", h.RegionTracks)
	r.Get("/regions/{id}/artists", h.RegionArtists)
	r.Get("/artists/emerging", h.Emerging)
	r.Get("/artists/recommendations", h.Recommendations)
}

// GET /api/v1/regions
func (h *catalogHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.reader.Regions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewRegions(regions))
}

// GET /api/v1/regions/{id}
func (h *catalogHandler) Region(w http.ResponseWriter, r *http.Request) {
	region, err := h.reader.Region(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewRegion(region))
}

// RegionTracks lists the region's tracks by play count.
// GET /api/v1/regions/{id}/tracks
func (h *catalogHandler) RegionTracks(w http.ResponseWriter, r *http.Request) {
	region, err := h.reader.Region(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tracks, err := h.reader.RegionTracks(r.Context(), region.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewTrackViews(tracks))
}

// RegionArtists splits the region's artists into the emerging and popular tabs.
// GET /api/v1/regions/{id}/artists
func (h *catalogHandler) RegionArtists(w http.ResponseWriter, r *http.Request) {
	region, err := h.reader.Region(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	artists, err := h.reader.RegionArtists(r.Context(), region.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	emerging, popular := catalog.SplitEmerging(artists)
	writeJSON(w, http.StatusOK, view.RegionArtists{
		Emerging: view.NewArtists(emerging),
		Popular:  view.NewArtists(popular),
	})
}

// GET /api/v1/artists/emerging
func (h *catalogHandler) Emerging(w http.ResponseWriter, r *http.Request) {
	artists, err := h.reader.EmergingArtists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewArtistViews(artists))
}

// Recommendations suggests emerging artists, skipping the ?exclude= region.
// GET /api/v1/artists/recommendations
func (h *catalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	artists, err := h.reader.Recommendations(r.Context(), r.URL.Query().Get("exclude"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewArtistViews(artists))
}

// Random picks a region other than ?exclude=.
// GET /api/v1/regions/random
func (h *catalogHandler) Random(w http.ResponseWriter, r *http.Request) {
	region, err := h.reader.RandomRegion(r.Context(), r.URL.Query().Get("exclude"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewRegion(region))
}

// Nearest resolves ?lat=&lon= to the closest region.
// GET /api/v1/regions/nearest
func (h *catalogHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoords(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, ok, err := h.reader.NearestRegion(r.Context(), lat, lon)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, errNoCoordinates)
		return
	}
	writeJSON(w, http.StatusOK, view.NewNearestRegion(m))
}

func parseCoords(r *http.Request) (lat, lon float64, err error) {
	q := r.URL.Query()
	lat, err = strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return 0, 0, errCoordFormat
	}
	lon, err = strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return 0, 0, errCoordFormat
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, store.ErrInvalidCoord
	}
	return lat, lon, nil
}
