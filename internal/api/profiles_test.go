package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joestump/frequency/internal/profile"
	"github.com/joestump/frequency/internal/view"
)

func TestProfiles_Me(t *testing.T) {
	env := newTestEnv(t)
	ana, tok := seedUser(t, env, "ana", "user")

	var me view.Me
	expect(t, env.do(t, "GET", "/api/v1/me", tok, nil), http.StatusOK, &me)
	if me.ID != ana.ID || me.Email != "ana@example.com" || me.Role != "user" {
		t.Errorf("me = %+v", me)
	}
	if me.Latitude != nil {
		t.Errorf("latitude = %v, want unset", *me.Latitude)
	}

	var raw map[string]any
	expect(t, env.do(t, "GET", "/api/v1/me", tok, nil), http.StatusOK, &raw)
	if _, ok := raw["password_hash"]; ok {
		t.Error("password hash leaked")
	}
}

func TestProfiles_LocationAndNearestRegion(t *testing.T) {
	env := newTestEnv(t)
	_, anaTok := seedUser(t, env, "ana", "user")
	_, benTok := seedUser(t, env, "ben", "user")

	expectCode(t, env.do(t, "GET", "/api/v1/me/nearest-region", anaTok, nil), http.StatusNotFound, "NOT_FOUND")
	expectCode(t, env.do(t, "PUT", "/api/v1/me/location", anaTok, map[string]any{"latitude": 10}),
		http.StatusBadRequest, "VALIDATION_ERROR")
	expectCode(t, env.do(t, "PUT", "/api/v1/me/location", anaTok, map[string]any{"latitude": 95, "longitude": 0}),
		http.StatusBadRequest, "VALIDATION_ERROR")

	var me view.Me
	expect(t, env.do(t, "PUT", "/api/v1/me/location", anaTok, map[string]any{"latitude": 37.5, "longitude": 127.0}),
		http.StatusOK, &me)
	if me.Latitude == nil || *me.Latitude != 37.5 {
		t.Fatalf("latitude = %v", me.Latitude)
	}

	var m view.NearestRegion
	expect(t, env.do(t, "GET", "/api/v1/me/nearest-region", anaTok, nil), http.StatusOK, &m)
	if m.Region.ID != "east-asia" {
		t.Errorf("nearest = %q, want east-asia", m.Region.ID)
	}

	rec := env.do(t, "GET", "/api/v1/profiles/locations", benTok, nil)
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type = %q", ct)
	}
	var fc geojson.FeatureCollection
	expect(t, rec, http.StatusOK, &fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("collection = %+v", fc)
	}
	f := fc.Features[0]
	if pt, ok := f.Geometry.(orb.Point); !ok || pt != (orb.Point{127.0, 37.5}) {
		t.Errorf("geometry = %v, want [lon lat]", f.Geometry)
	}
	if f.Properties.MustString(profile.PropDisplayName) != "ana" || f.Properties.MustBool(profile.PropSelf) {
		t.Errorf("properties = %+v", f.Properties)
	}
}

func TestProfiles_Search(t *testing.T) {
	env := newTestEnv(t)
	_, anaTok := seedUser(t, env, "Anaïs", "user")
	seedUser(t, env, "Nadia", "user")
	seedUser(t, env, "Ben", "user")

	var found []view.Profile
	expect(t, env.do(t, "GET", "/api/v1/profiles/search?q=NA", anaTok, nil), http.StatusOK, &found)
	if len(found) != 1 || found[0].DisplayName != "Nadia" {
		t.Errorf("found = %+v, want only Nadia", found)
	}

	rec := env.do(t, "GET", "/api/v1/profiles/search?q=", anaTok, nil)
	var empty []json.RawMessage
	expect(t, rec, http.StatusOK, &empty)
	if len(empty) != 0 {
		t.Errorf("blank query returned %d profiles", len(empty))
	}
}
