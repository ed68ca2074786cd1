package api_test

import (
	"net/http"
	"testing"

	"github.com/joestump/frequency/internal/api"
	"github.com/joestump/frequency/internal/view"
)

func TestAdmin_RequiresRole(t *testing.T) {
	env := newTestEnv(t)
	_, tok := seedUser(t, env, "ana", "user")
	expectCode(t, env.do(t, "GET", "/api/v1/admin/users", tok, nil), http.StatusForbidden, "FORBIDDEN")
}

func TestAdmin_ListUsersPaged(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedUser(t, env, "root", "admin")
	seedUser(t, env, "ana", "user")
	seedUser(t, env, "ben", "user")

	seen := map[string]bool{}
	path := "/api/v1/admin/users?limit=2"
	for range 3 {
		var pg api.UserListResponse
		expect(t, env.do(t, "GET", path, adminTok, nil), http.StatusOK, &pg)
		for _, u := range pg.Users {
			if seen[u.ID] {
				t.Fatalf("user %s returned twice", u.ID)
			}
			seen[u.ID] = true
		}
		if pg.NextCursor == "" {
			break
		}
		path = "/api/v1/admin/users?limit=2&cursor=" + pg.NextCursor
	}
	if len(seen) != 3 {
		t.Errorf("saw %d users, want 3", len(seen))
	}
}

func TestAdmin_UpdateRole(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedUser(t, env, "root", "admin")
	ana, anaTok := seedUser(t, env, "ana", "user")

	expectCode(t, env.do(t, "PUT", "/api/v1/admin/users/"+ana.ID+"/role", adminTok, map[string]string{"role": "owner"}),
		http.StatusBadRequest, "VALIDATION_ERROR")
	expectCode(t, env.do(t, "PUT", "/api/v1/admin/users/ghost/role", adminTok, map[string]string{"role": "admin"}),
		http.StatusNotFound, "NOT_FOUND")

	var me view.Me
	expect(t, env.do(t, "PUT", "/api/v1/admin/users/"+ana.ID+"/role", adminTok, map[string]string{"role": "admin"}),
		http.StatusOK, &me)
	if me.Role != "admin" {
		t.Fatalf("role = %q, want admin", me.Role)
	}
	expect(t, env.do(t, "GET", "/api/v1/admin/users", anaTok, nil), http.StatusOK, nil)
}
