package view_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

func TestError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{identity.ErrNotAuthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{store.ErrEmptyName, http.StatusBadRequest, "VALIDATION_ERROR"},
		{store.ErrDuplicateEdge, http.StatusConflict, "DUPLICATE_EDGE"},
		{store.ErrDuplicateTrack, http.StatusConflict, "DUPLICATE_TRACK"},
		{store.ErrAlreadyShared, http.StatusConflict, "ALREADY_SHARED"},
		{store.ErrIdentityTaken, http.StatusConflict, "CONFLICT"},
		{store.ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
		{store.ErrNotRecipient, http.StatusForbidden, "NOT_RECIPIENT"},
		{fmt.Errorf("loading: %w", store.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{store.Classify(errors.New("disk I/O error")), http.StatusInternalServerError, "STORE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, body := view.Error(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestError_HidesDriverText(t *testing.T) {
	_, body := view.Error(store.Classify(errors.New("pq: relation users does not exist")))
	assert.NotContains(t, body.Error, "pq:")
}

func TestNewMe_OmitsCredentials(t *testing.T) {
	u := &store.User{
		ID:           "u1",
		DisplayName:  "Ana",
		Email:        sql.NullString{String: "ana@example.com", Valid: true},
		PasswordHash: sql.NullString{String: "$2a$10$secret", Valid: true},
		Latitude:     sql.NullFloat64{Float64: 1.5, Valid: true},
		Longitude:    sql.NullFloat64{Float64: 2.5, Valid: true},
		Role:         "user",
	}
	b, err := json.Marshal(view.NewMe(u))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.Contains(t, string(b), `"current_latitude":1.5`)

	b, err = json.Marshal(view.NewProfile(&store.User{ID: "u2"}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"current_latitude":null`)
}

func TestNewProfile_Nil(t *testing.T) {
	assert.Nil(t, view.NewProfile(nil))
	assert.Nil(t, view.NewRegion(nil))
	assert.Nil(t, view.NewArtist(nil, nil))
}
