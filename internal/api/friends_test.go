package api_test

import (
	"net/http"
	"testing"

	"github.com/joestump/frequency/internal/view"
)

func TestFriends_RequestAcceptRemove(t *testing.T) {
	env := newTestEnv(t)
	ana, anaTok := seedUser(t, env, "ana", "user")
	ben, benTok := seedUser(t, env, "ben", "user")

	var req view.FriendRequest
	expect(t, env.do(t, "POST", "/api/v1/friends/requests", anaTok, map[string]string{"user_id": ben.ID}), http.StatusCreated, &req)
	if req.Status != "pending" || req.UserID != ana.ID || req.FriendID != ben.ID {
		t.Fatalf("request = %+v", req)
	}

	expectCode(t, env.do(t, "POST", "/api/v1/friends/requests", benTok, map[string]string{"user_id": ana.ID}),
		http.StatusConflict, "DUPLICATE_EDGE")
	expectCode(t, env.do(t, "POST", "/api/v1/friends/requests/"+req.ID+"/accept", anaTok, nil),
		http.StatusForbidden, "NOT_RECIPIENT")

	var incoming view.Friends
	expect(t, env.do(t, "GET", "/api/v1/friends", benTok, nil), http.StatusOK, &incoming)
	if len(incoming.PendingIncoming) != 1 || incoming.PendingIncoming[0].Profile.DisplayName != "ana" {
		t.Fatalf("pending = %+v", incoming.PendingIncoming)
	}

	expect(t, env.do(t, "POST", "/api/v1/friends/requests/"+req.ID+"/accept", benTok, nil), http.StatusNoContent, nil)
	expect(t, env.do(t, "POST", "/api/v1/friends/requests/"+req.ID+"/accept", benTok, nil), http.StatusNoContent, nil)

	var friends view.Friends
	expect(t, env.do(t, "GET", "/api/v1/friends", anaTok, nil), http.StatusOK, &friends)
	if len(friends.Accepted) != 1 || friends.Accepted[0].UserID != ben.ID {
		t.Fatalf("accepted = %+v", friends.Accepted)
	}

	expect(t, env.do(t, "DELETE", "/api/v1/friends/"+req.ID, anaTok, nil), http.StatusNoContent, nil)
	expectCode(t, env.do(t, "DELETE", "/api/v1/friends/"+req.ID, anaTok, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestFriends_Reject(t *testing.T) {
	env := newTestEnv(t)
	_, anaTok := seedUser(t, env, "ana", "user")
	ben, benTok := seedUser(t, env, "ben", "user")
	_, camTok := seedUser(t, env, "cam", "user")

	var req view.FriendRequest
	expect(t, env.do(t, "POST", "/api/v1/friends/requests", anaTok, map[string]string{"user_id": ben.ID}), http.StatusCreated, &req)
	expectCode(t, env.do(t, "DELETE", "/api/v1/friends/requests/"+req.ID, camTok, nil), http.StatusNotFound, "NOT_FOUND")
	expect(t, env.do(t, "DELETE", "/api/v1/friends/requests/"+req.ID, benTok, nil), http.StatusNoContent, nil)

	var friends view.Friends
	expect(t, env.do(t, "GET", "/api/v1/friends", benTok, nil), http.StatusOK, &friends)
	if len(friends.PendingIncoming) != 0 {
		t.Errorf("pending after reject = %d, want 0", len(friends.PendingIncoming))
	}
}

func TestFriends_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ana, anaTok := seedUser(t, env, "ana", "user")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"self", map[string]string{"user_id": ana.ID}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"blank", map[string]string{"user_id": ""}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown user", map[string]string{"user_id": "ghost"}, http.StatusNotFound, "NOT_FOUND"},
		{"bad body", `{"user_id":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", `{"friend":"x"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, env.do(t, "POST", "/api/v1/friends/requests", anaTok, tt.body), tt.status, tt.code)
		})
	}
}

func TestFriends_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)
	expectCode(t, env.do(t, "GET", "/api/v1/friends", "", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
	expectCode(t, env.do(t, "GET", "/api/v1/friends", "fq_bogus", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
}
