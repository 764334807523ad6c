package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homestead/internal/auth"
)

var (
	// ErrNotFound is returned when no user record exists for an id.
	ErrNotFound = errors.New("user not found")
	// ErrValidation is returned for malformed self-service updates.
	ErrValidation = errors.New("no valid fields to update")
)

// Service provides user persistence business logic.
type Service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert creates or updates the user record for verified identity claims.
// New users get the default role; existing users keep whatever role they
// have, regardless of what the claims carry. Implements the auth manager's
// user-upsert collaborator contract.
func (s *Service) Upsert(ctx context.Context, claims auth.Claims) error {
	if claims.Sub == "" {
		return fmt.Errorf("upsert user: missing subject claim")
	}

	_, err := s.repo.Upsert(ctx, User{
		ID:              claims.Sub,
		Email:           claims.Email,
		FirstName:       claims.FirstName,
		LastName:        claims.LastName,
		ProfileImageURL: claims.ProfileImageURL,
		Role:            DefaultRole,
	})
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", claims.Sub, err)
	}
	return nil
}

// Get returns the user with the given subject id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns all user records.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ProfileUpdate is the allow-listed self-service field delta. Nil fields
// are left unchanged. Role is not part of this type on purpose.
type ProfileUpdate struct {
	Phone *string
	Bio   *string
}

// UpdateProfile applies the allow-listed fields to the user record.
// An empty delta is a validation error, never a silent no-op.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfileUpdate) (*User, error) {
	if patch.Phone == nil && patch.Bio == nil {
		return nil, ErrValidation
	}

	current, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}

	phone := current.Phone
	if patch.Phone != nil {
		phone = strings.TrimSpace(*patch.Phone)
	}
	bio := current.Bio
	if patch.Bio != nil {
		bio = strings.TrimSpace(*patch.Bio)
	}

	updated, err := s.repo.UpdateContact(ctx, id, phone, bio)
	if err != nil {
		return nil, fmt.Errorf("update user contact: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}
