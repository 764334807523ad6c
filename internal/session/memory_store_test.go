package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStorePutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{ID: NewID(), Payload: []byte(`{"k":"v"}`), ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected record to be found")
	}
	if string(got.Payload) != `{"k":"v"}` {
		t.Fatalf("unexpected payload: %s", got.Payload)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing record")
	}
}

func TestMemoryStoreTreatsExpiredAsAbsent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{ID: "expired", Payload: []byte("x"), ExpiresAt: time.Now().Add(-time.Second)}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, "expired")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired record to be treated as absent")
	}
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{ID: "s1", Payload: []byte("one"), ExpiresAt: time.Now().Add(time.Hour)}
	_ = store.Put(ctx, rec)
	rec.Payload = []byte("two")
	_ = store.Put(ctx, rec)

	got, _ := store.Get(ctx, "s1")
	if got == nil || string(got.Payload) != "two" {
		t.Fatalf("expected last write to win, got %v", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{ID: "s1", Payload: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)}
	_ = store.Put(ctx, rec)
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	got, _ := store.Get(ctx, "s1")
	if got != nil {
		t.Fatal("expected record to be gone after delete")
	}
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Put(ctx, Record{ID: "live", Payload: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)})
	_ = store.Put(ctx, Record{ID: "dead-1", Payload: []byte("x"), ExpiresAt: time.Now().Add(-time.Minute)})
	_ = store.Put(ctx, Record{ID: "dead-2", Payload: []byte("x"), ExpiresAt: time.Now().Add(-time.Hour)})

	removed, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	got, _ := store.Get(ctx, "live")
	if got == nil {
		t.Fatal("expected live record to survive")
	}
}

func TestNewIDIsUnique(t *testing.T) {
	if NewID() == NewID() {
		t.Fatal("expected unique session ids")
	}
}
