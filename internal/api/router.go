package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/frequency/internal/auth"
	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/logging"
	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/profile"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	Logger         *log.Logger
	DB             Pinger
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	BearerAuth     *auth.BearerTokenMiddleware
	TokenStore     auth.TokenStore
	UserStore      *store.UserStore
	Social         *social.Manager
	Playlists      *playlist.Manager
	Catalog        *catalog.Reader
	Profiles       *profile.Service
	Realtime       http.Handler
	RateLimiter    *RateLimiter
}

// NewRouter assembles the chi router: /auth for sign-in, /api/v1 for the
// JSON API, plus /metrics and /healthz.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger.WithPrefix("api")
	rs := responder{logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(deps.Logger.WithPrefix("http")))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(deps.DB))
	r.Handle("/metrics", promhttp.Handler())

	// The websocket authenticates with a bearer token only. Session
	// loading buffers the response, which cannot be hijacked.
	if deps.Realtime != nil {
		r.With(deps.BearerAuth.Authenticate, deps.AuthMiddleware.RequireUser).
			Get("/api/v1/realtime", deps.Realtime.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionManager.LoadAndSave)

		r.Route("/auth", deps.AuthHandlers.Routes)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(deps.BearerAuth.Authenticate)
			r.Use(deps.AuthMiddleware.LoadUser)
			r.Use(deps.AuthMiddleware.RequireUser)
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware)
			}

			registerProfileRoutes(r, deps.Profiles, deps.Social, rs)
			registerFriendRoutes(r, deps.Social, rs)
			registerPlaylistRoutes(r, deps.Playlists, rs)
			registerCatalogRoutes(r, deps.Catalog, rs)
			registerTokenRoutes(r, deps.TokenStore, rs)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole("admin"))
				registerAdminRoutes(r, deps.UserStore, rs)
			})
		})
	})

	return r
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
