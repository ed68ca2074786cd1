package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joestump/frequency/internal/api"
	"github.com/joestump/frequency/internal/auth"
	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/feed"
	"github.com/joestump/frequency/internal/logging"
	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/profile"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/testutil"
)

// testEnv holds the router and the stores behind it.
type testEnv struct {
	Router     http.Handler
	UserStore  *store.UserStore
	TokenStore *auth.SQLTokenStore
}

// newTestEnv creates an in-memory SQLite database seeded with the bundled
// catalog and wires up the full router with real stores.
func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, api.NewRateLimiter(1000, 1000))
}

func newTestEnvWithLimiter(t *testing.T, limiter *api.RateLimiter) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := logging.Discard()

	seed, err := catalog.DefaultSeed()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}
	cs := store.NewCatalogStore(db)
	if err := catalog.Load(context.Background(), cs, seed); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	f := feed.NewMemory()
	t.Cleanup(func() { _ = f.Close() })

	us := store.NewUserStore(db)
	ts := auth.NewSQLTokenStore(db)
	sm := auth.NewSessionManager(db, "sqlite3", auth.SessionOptions{Lifetime: time.Hour, Insecure: true})
	reader := catalog.NewReader(cs)

	router := api.NewRouter(api.Deps{
		Logger:         logger,
		DB:             db,
		SessionManager: sm,
		AuthHandlers:   auth.NewHandlers(nil, sm, us, auth.HandlerOptions{Insecure: true}, logger),
		AuthMiddleware: auth.NewMiddleware(sm, us, logger),
		BearerAuth:     auth.NewBearerTokenMiddleware(ts, us, logger),
		TokenStore:     ts,
		UserStore:      us,
		Social:         social.NewManager(store.NewFriendshipStore(db), us, f, logger),
		Playlists:      playlist.NewManager(store.NewPlaylistStore(db), cs, us, f, logger),
		Catalog:        reader,
		Profiles:       profile.NewService(us, reader, f, logger),
		RateLimiter:    limiter,
	})
	return &testEnv{Router: router, UserStore: us, TokenStore: ts}
}

// seedUser creates a password account and returns it with a bearer token.
func seedUser(t *testing.T, env *testEnv, name, role string) (*store.User, string) {
	t.Helper()
	ctx := context.Background()
	u, err := env.UserStore.CreateWithPassword(ctx, store.NewCredentialUser{
		Email: name + "@example.com", DisplayName: name, PasswordHash: "x",
	}, "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role != "user" {
		u, err = env.UserStore.UpdateRole(ctx, u.ID, role)
		if err != nil {
			t.Fatalf("update role: %v", err)
		}
	}
	plaintext, hash, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := env.TokenStore.Create(ctx, u.ID, "test-token", hash, nil); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return u, plaintext
}

// do sends a request as the holder of token ("" for anonymous) and returns
// the recorder.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

// expect fails the test unless rec has the wanted status, then decodes the
// body into out when out is non-nil.
func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

// expectCode checks an error response's status and code.
func expectCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	expect(t, rec, status, &body)
	if body.Code != code {
		t.Errorf("code = %q, want %q (error %q)", body.Code, code, body.Error)
	}
}
