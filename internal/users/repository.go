package users

import "context"

// Repository defines the interface for user persistence. Find and
// UpdateContact return nil when no user with the given id exists.
type Repository interface {
	Find(ctx context.Context, id string) (*User, error)

	// Upsert inserts the user or, when the id already exists, updates the
	// profile fields sourced from identity claims. The stored role is never
	// modified by an upsert.
	Upsert(ctx context.Context, user User) (User, error)

	UpdateContact(ctx context.Context, id, phone, bio string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
