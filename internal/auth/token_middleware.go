package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
)

// AccessTokenParam carries a bearer token on websocket upgrades, where
// browsers cannot set an Authorization header.
const AccessTokenParam = "access_token"

// BearerTokenMiddleware authenticates requests that present an API token.
type BearerTokenMiddleware struct {
	tokens TokenStore
	users  *store.UserStore
	logger *log.Logger
	now    func() time.Time
}

func NewBearerTokenMiddleware(ts TokenStore, us *store.UserStore, logger *log.Logger) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{tokens: ts, users: us, logger: logger.WithPrefix("auth"), now: time.Now}
}

// Authenticate attaches the token owner to the request. Requests without a
// token pass through untouched so session auth can run next; a token that
// is unknown, revoked or expired is rejected with 401.
func (m *BearerTokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plaintext, presented := bearerToken(r)
		if !presented {
			next.ServeHTTP(w, r)
			return
		}
		user, rec, err := m.resolve(r.Context(), plaintext)
		if err != nil {
			writeError(w, identity.ErrNotAuthenticated)
			return
		}

		go func(id string) {
			if err := m.tokens.UpdateLastUsed(context.Background(), id); err != nil {
				m.logger.Warn("updating token last_used_at", "token", id, "err", err)
			}
		}(rec.ID)

		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	})
}

func (m *BearerTokenMiddleware) resolve(ctx context.Context, plaintext string) (*store.User, *TokenRecord, error) {
	rec, err := m.tokens.GetByHash(ctx, HashToken(plaintext))
	if err != nil {
		return nil, nil, err
	}
	if !rec.Usable(m.now()) {
		return nil, nil, store.ErrNotFound
	}
	user, err := m.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, rec, nil
}

// bearerToken extracts a token from the Authorization header or the
// access_token query parameter. presented is true when either was set,
// even if empty.
func bearerToken(r *http.Request) (token string, presented bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t), true
		}
		return "", true
	}
	if r.URL.Query().Has(AccessTokenParam) {
		return r.URL.Query().Get(AccessTokenParam), true
	}
	return "", false
}
