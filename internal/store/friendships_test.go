package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/joestump/frequency/internal/store"
)

func TestPairKey_Symmetric(t *testing.T) {
	if store.PairKey("a", "b") != store.PairKey("b", "a") {
		t.Error("PairKey should not depend on argument order")
	}
	if got := store.PairKey("b", "a"); got != "a:b" {
		t.Errorf("PairKey = %q, want a:b", got)
	}
}

func TestFriendshipStore_Lifecycle(t *testing.T) {
	db := newDB(t)
	us := store.NewUserStore(db)
	fs := store.NewFriendshipStore(db)
	ctx := context.Background()

	a := mustUser(t, us, "Ana")
	b := mustUser(t, us, "Ben")

	edge, err := fs.Create(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if edge.Status != store.StatusPending || edge.Counterpart(a.ID) != b.ID || edge.Counterpart(b.ID) != a.ID {
		t.Errorf("unexpected edge %+v", edge)
	}

	// Either direction collides on the pair key.
	if _, err := fs.Create(ctx, a.ID, b.ID); !errors.Is(err, store.ErrDuplicateEdge) {
		t.Errorf("same direction: got %v, want ErrDuplicateEdge", err)
	}
	if _, err := fs.Create(ctx, b.ID, a.ID); !errors.Is(err, store.ErrDuplicateEdge) {
		t.Errorf("reverse direction: got %v, want ErrDuplicateEdge", err)
	}

	if err := fs.Accept(ctx, edge.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := fs.Accept(ctx, edge.ID); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	got, err := fs.GetByID(ctx, edge.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.StatusAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}

	edges, err := fs.ListForUser(ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1", len(edges))
	}

	if err := fs.Delete(ctx, edge.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := fs.Delete(ctx, edge.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestFriendshipStore_UnknownRecipient(t *testing.T) {
	db := newDB(t)
	us := store.NewUserStore(db)
	fs := store.NewFriendshipStore(db)
	a := mustUser(t, us, "Ana")

	_, err := fs.Create(context.Background(), a.ID, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
