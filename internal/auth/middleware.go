package auth

import (
	"encoding/json"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

// Middleware resolves session sign-ins and guards routes.
type Middleware struct {
	sessions *scs.SessionManager
	users    *store.UserStore
	logger   *log.Logger
}

func NewMiddleware(sm *scs.SessionManager, us *store.UserStore, logger *log.Logger) *Middleware {
	return &Middleware{sessions: sm, users: us, logger: logger.WithPrefix("auth")}
}

// LoadUser attaches the session's user to the request unless an earlier
// middleware already identified the caller. It must run inside
// sessions.LoadAndSave.
func (m *Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.UserFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		userID := m.sessions.GetString(r.Context(), SessionUserIDKey)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			// The session outlived its user.
			m.logger.Warn("dropping session for missing user", "user", userID, "err", err)
			_ = m.sessions.Destroy(r.Context())
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	})
}

// RequireUser rejects requests with no signed-in user.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := identity.Require(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects signed-in users without role. Use after RequireUser.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := identity.UserFromContext(r.Context())
			if u == nil {
				writeError(w, identity.ErrNotAuthenticated)
				return
			}
			if u.Role != role {
				writeJSON(w, http.StatusForbidden, view.ErrorBody{Error: "forbidden", Code: "FORBIDDEN"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := view.Error(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
