package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/joestump/frequency/internal/store"
)

func TestUpsert_PreservesRole(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	ctx := context.Background()

	u, err := us.Upsert(ctx, "https://idp", "sub-1", "Admin@Example.com", "Admin", "admin@example.com")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatal("expected admin role for matching admin email")
	}

	if _, err := us.UpdateRole(ctx, u.ID, "user"); err != nil {
		t.Fatalf("update role: %v", err)
	}
	again, err := us.Upsert(ctx, "https://idp", "sub-1", "admin@example.com", "Renamed", "admin@example.com")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("second login created a new user: %s != %s", again.ID, u.ID)
	}
	if again.Role != "user" {
		t.Errorf("role = %q, want demotion to survive login", again.Role)
	}
	if again.DisplayName != "Renamed" || again.SearchName != "renamed" {
		t.Errorf("profile not refreshed: %q / %q", again.DisplayName, again.SearchName)
	}
}

func TestCreateWithPassword(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	ctx := context.Background()

	u, err := us.CreateWithPassword(ctx, store.NewCredentialUser{Email: " Ada@Example.com ", PasswordHash: "h"}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Provider != store.ProviderPassword || u.Email.String != "ada@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if u.DisplayName != "ada@example.com" {
		t.Errorf("display name = %q, want email fallback", u.DisplayName)
	}

	_, err = us.CreateWithPassword(ctx, store.NewCredentialUser{Email: "ada@example.com", PasswordHash: "h"}, "")
	if !errors.Is(err, store.ErrIdentityTaken) {
		t.Errorf("duplicate email: got %v, want ErrIdentityTaken", err)
	}

	p, err := us.CreateWithPassword(ctx, store.NewCredentialUser{Phone: "+15550100", DisplayName: "Phone", PasswordHash: "h"}, "")
	if err != nil {
		t.Fatalf("create phone user: %v", err)
	}
	got, err := us.GetByPhone(ctx, "+15550100")
	if err != nil || got.ID != p.ID {
		t.Errorf("GetByPhone = %v, %v", got, err)
	}

	_, err = us.CreateWithPassword(ctx, store.NewCredentialUser{PasswordHash: "h"}, "")
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("no identifier: got %v, want ErrValidation", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	_, err := us.GetByID(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	ctx := context.Background()

	self := mustUser(t, us, "Maria")
	mustUser(t, us, "MARIANNE")
	mustUser(t, us, "Bob")
	mustUser(t, us, "Mar_x")

	got, err := us.Search(ctx, "mari", self.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "MARIANNE" {
		t.Errorf("search mari = %v, want only MARIANNE (self excluded)", names(got))
	}

	got, err = us.Search(ctx, "_", self.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "Mar_x" {
		t.Errorf("underscore should match literally, got %v", names(got))
	}

	got, err = us.Search(ctx, "   ", self.ID, 10)
	if err != nil || len(got) != 0 {
		t.Errorf("blank search = %v, %v; want empty", names(got), err)
	}
}

func TestSearch_Limit(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	for _, n := range []string{"Sam", "Samantha", "Samir", "Samuel"} {
		mustUser(t, us, n)
	}
	got, err := us.Search(context.Background(), "sam", "", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestUpdateLocation(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	ctx := context.Background()
	a := mustUser(t, us, "Ana")
	mustUser(t, us, "Ben")

	if _, err := us.UpdateLocation(ctx, a.ID, 91, 0); !errors.Is(err, store.ErrValidation) {
		t.Errorf("lat 91: got %v, want ErrValidation", err)
	}
	if _, err := us.UpdateLocation(ctx, "missing", 1, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing user: got %v, want ErrNotFound", err)
	}

	u, err := us.UpdateLocation(ctx, a.ID, 40.7, -74)
	if err != nil {
		t.Fatalf("update location: %v", err)
	}
	lat, lon, ok := u.Location()
	if !ok || lat != 40.7 || lon != -74 {
		t.Errorf("Location() = %v, %v, %v", lat, lon, ok)
	}

	located, err := us.ListWithLocation(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(located) != 1 || located[0].ID != a.ID {
		t.Errorf("ListWithLocation = %v, want only Ana", names(located))
	}
}

func TestListByIDs_SkipsMissing(t *testing.T) {
	us := store.NewUserStore(newDB(t))
	a := mustUser(t, us, "Ana")
	got, err := us.ListByIDs(context.Background(), []string{a.ID, "ghost"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("got %v", names(got))
	}
}

func names(users []*store.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.DisplayName
	}
	return out
}
