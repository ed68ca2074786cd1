package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/frequency/internal/auth"
	"github.com/joestump/frequency/internal/store"
)

var errExpiresIn = fmt.Errorf("%w: expires_in must be a positive duration such as 720h", store.ErrValidation)

// tokensHandler lets a signed-in user mint bearer tokens for scripts and
// the websocket endpoint.
type tokensHandler struct {
	responder
	tokens auth.TokenStore
	now    func() time.Time
}

func registerTokenRoutes(r chi.Router, tokens auth.TokenStore, rs responder) {
	h := &tokensHandler{responder: rs, tokens: tokens, now: time.Now}
	r.Get("/tokens", h.List)
	r.Post("/tokens", h.Create)
	r.Delete("/tokens/{id}", h.Revoke)
}

func newTokenResponse(rec *auth.TokenRecord) TokenResponse {
	item := TokenResponse{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
	if rec.LastUsedAt.Valid {
		t := rec.LastUsedAt.Time
		item.LastUsedAt = &t
	}
	if rec.ExpiresAt.Valid {
		t := rec.ExpiresAt.Time
		item.ExpiresAt = &t
	}
	return item
}

// List returns the caller's tokens without hashes.
// GET /api/v1/tokens
func (h *tokensHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.tokens.ListByUser(r.Context(), self(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := TokenListResponse{Tokens: make([]TokenResponse, 0, len(records))}
	for _, rec := range records {
		resp.Tokens = append(resp.Tokens, newTokenResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create generates a new token and returns the plaintext once.
// POST /api/v1/tokens
func (h *tokensHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			h.fail(w, r, errExpiresIn)
			return
		}
		t := h.now().UTC().Add(d)
		expiresAt = &t
	}

	plaintext, hash, err := auth.GenerateToken()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.tokens.Create(r.Context(), self(r), req.Name, hash, expiresAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenCreatedResponse{
		TokenResponse: newTokenResponse(rec),
		Token:         plaintext,
	})
}

// Revoke soft-deletes a token owned by the caller.
// DELETE /api/v1/tokens/{id}
func (h *tokensHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), chi.URLParam(r, "id"), self(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
