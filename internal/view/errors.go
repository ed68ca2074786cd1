package view

import (
	"errors"
	"net/http"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
)

// ErrorBody is the error envelope for every failed request and every
// failed realtime snapshot.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const storeMessage = "something went wrong, please try again"

// Error maps err onto an HTTP status and error envelope. Backend failures
// get a generic message; the driver error stays in the logs.
func Error(err error) (int, ErrorBody) {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated):
		return http.StatusUnauthorized, ErrorBody{"sign in required", "UNAUTHENTICATED"}
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, ErrorBody{err.Error(), "VALIDATION_ERROR"}
	case errors.Is(err, store.ErrDuplicateEdge):
		return http.StatusConflict, ErrorBody{"a friend request between you already exists", "DUPLICATE_EDGE"}
	case errors.Is(err, store.ErrDuplicateTrack):
		return http.StatusConflict, ErrorBody{"track is already in this playlist", "DUPLICATE_TRACK"}
	case errors.Is(err, store.ErrAlreadyShared):
		return http.StatusConflict, ErrorBody{"playlist is already shared with this user", "ALREADY_SHARED"}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, ErrorBody{err.Error(), "CONFLICT"}
	case errors.Is(err, store.ErrNotOwner):
		return http.StatusForbidden, ErrorBody{"only the owner can do that", "NOT_OWNER"}
	case errors.Is(err, store.ErrNotRecipient):
		return http.StatusForbidden, ErrorBody{"only the recipient can accept this request", "NOT_RECIPIENT"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorBody{err.Error(), "NOT_FOUND"}
	default:
		return http.StatusInternalServerError, ErrorBody{storeMessage, "STORE_ERROR"}
	}
}
