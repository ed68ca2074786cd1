package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

var errBadBody = fmt.Errorf("%w: invalid request body", store.ErrValidation)

// responder writes JSON replies for the API handlers. Backend failures are
// logged with the request id before the client gets a generic STORE_ERROR.
type responder struct {
	logger *log.Logger
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := view.Error(err)
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	writeJSON(w, status, body)
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON request body into v, replying 400 on failure.
func (rs responder) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		rs.fail(w, r, errBadBody)
		return false
	}
	return true
}

// self returns the signed-in user's id, or "" so the managers reject the call.
func self(r *http.Request) string {
	if u := identity.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
