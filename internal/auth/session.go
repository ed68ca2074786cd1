package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

// SessionUserIDKey is where a signed-in session keeps the user id.
const SessionUserIDKey = "user_id"

const sessionCookie = "frequency_session"

// SessionOptions configures NewSessionManager.
type SessionOptions struct {
	Lifetime time.Duration
	// Insecure drops the Secure cookie attribute for plain-HTTP development.
	Insecure bool
	// CleanupInterval is how often expired sessions are purged. Zero
	// disables the background purge.
	CleanupInterval time.Duration
}

// NewSessionManager creates an SCS session manager whose store lives in the
// application database, picked by driver.
func NewSessionManager(db *sqlx.DB, driver string, opts SessionOptions) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.NewWithCleanupInterval(db.DB, opts.CleanupInterval)
	case "postgres":
		sm.Store = postgresstore.NewWithCleanupInterval(db.DB, opts.CleanupInterval)
	default:
		sm.Store = sqlite3store.NewWithCleanupInterval(db.DB, opts.CleanupInterval)
	}
	sm.Lifetime = opts.Lifetime
	sm.Cookie.Name = sessionCookie
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !opts.Insecure
	return sm
}
