package api

import "time"

// --- Friend types ---

// FriendRequestBody is the request body for POST /api/v1/friends/requests.
type FriendRequestBody struct {
	UserID string `json:"user_id"`
}

// --- Playlist types ---

// PlaylistBody is the request body for creating and updating a playlist.
// RegionID is only read on create.
type PlaylistBody struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RegionID    string `json:"region_id,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

// AddTrackBody is the request body for POST /api/v1/playlists/{id}/tracks.
type AddTrackBody struct {
	TrackID string `json:"track_id"`
}

// ShareBody is the request body for POST /api/v1/playlists/{id}/shares.
type ShareBody struct {
	UserID string `json:"user_id"`
}

// --- Profile types ---

// LocationBody is the request body for PUT /api/v1/me/location.
type LocationBody struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// --- Token types ---

// CreateTokenRequest is the request body for POST /api/v1/tokens.
// ExpiresIn is a Go duration such as "720h"; empty means no expiry.
type CreateTokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expires_in,omitempty"`
}

// TokenResponse is the JSON representation of an API token.
type TokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// TokenCreatedResponse carries the plaintext token. It is returned once.
type TokenCreatedResponse struct {
	TokenResponse
	Token string `json:"token"`
}

// TokenListResponse is the response for GET /api/v1/tokens.
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// --- Admin types ---

// UpdateRoleRequest is the request body for PUT /api/v1/admin/users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}
