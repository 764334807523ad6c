package users

import (
	"context"
	"errors"
	"testing"

	"homestead/internal/auth"
)

func TestUpsertCreatesUserWithDefaultRole(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	claims := auth.Claims{Sub: "u1", Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace"}
	if err := svc.Upsert(ctx, claims); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	user, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if user.Role != RoleBuyer {
		t.Fatalf("expected default role buyer, got %q", user.Role)
	}
	if user.Email != "a@b.com" || user.FirstName != "Ada" {
		t.Fatalf("unexpected profile: %+v", user)
	}
}

func TestUpsertNeverChangesExistingRole(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	if _, err := repo.Upsert(ctx, User{ID: "u1", Email: "old@b.com", Role: RoleAgent}); err != nil {
		t.Fatalf("seed upsert returned error: %v", err)
	}

	claims := auth.Claims{Sub: "u1", Email: "new@b.com", FirstName: "Ada"}
	if err := svc.Upsert(ctx, claims); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	user, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if user.Role != RoleAgent {
		t.Fatalf("expected role to survive upsert, got %q", user.Role)
	}
	if user.Email != "new@b.com" {
		t.Fatalf("expected profile fields to refresh, got %q", user.Email)
	}
}

func TestUpsertAllowsDuplicateEmails(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	// Two subjects whose claims omit email both store the empty string.
	for _, sub := range []string{"u1", "u2"} {
		if err := svc.Upsert(ctx, auth.Claims{Sub: sub}); err != nil {
			t.Fatalf("Upsert(%s) returned error: %v", sub, err)
		}
	}

	// An email already held by another record is accepted on login.
	if err := svc.Upsert(ctx, auth.Claims{Sub: "u1", Email: "shared@b.com"}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if err := svc.Upsert(ctx, auth.Claims{Sub: "u2", Email: "shared@b.com"}); err != nil {
		t.Fatalf("expected duplicate email to be accepted, got %v", err)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}
}

func TestUpsertRequiresSubject(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if err := svc.Upsert(context.Background(), auth.Claims{Email: "a@b.com"}); err == nil {
		t.Fatal("expected error for claims without subject")
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfileAppliesAllowedFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	if err := svc.Upsert(ctx, auth.Claims{Sub: "u1", Email: "a@b.com"}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	phone := "555-0100"
	bio := "hi"
	updated, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Phone: &phone, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Phone != "555-0100" || updated.Bio != "hi" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.Role != RoleBuyer {
		t.Fatalf("expected role untouched, got %q", updated.Role)
	}
}

func TestUpdateProfilePartialDelta(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	if err := svc.Upsert(ctx, auth.Claims{Sub: "u1"}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	phone := "555-0100"
	if _, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Phone: &phone}); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}

	bio := "agent of record"
	updated, err := svc.UpdateProfile(ctx, "u1", ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.Phone != "555-0100" {
		t.Fatal("expected omitted field to keep its value")
	}
	if updated.Bio != "agent of record" {
		t.Fatalf("unexpected bio: %q", updated.Bio)
	}
}

func TestUpdateProfileEmptyDelta(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty delta, got %v", err)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	bio := "hi"
	if _, err := svc.UpdateProfile(context.Background(), "missing", ProfileUpdate{Bio: &bio}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  Role
		valid bool
	}{
		{"buyer", RoleBuyer, true},
		{"seller", RoleSeller, true},
		{"agent", RoleAgent, true},
		{"admin", RoleAdmin, true},
		{"superuser", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Fatalf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestListReturnsAllUsers(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	for _, sub := range []string{"u1", "u2", "u3"} {
		if err := svc.Upsert(ctx, auth.Claims{Sub: sub}); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}
}
