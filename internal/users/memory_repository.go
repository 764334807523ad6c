package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository implements Repository with an in-process map, for
// non-persistent deployments and tests. Safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

// Find looks up a user by their subject id.
func (r *MemoryRepository) Find(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Upsert inserts the user or refreshes claim-sourced profile fields,
// leaving any existing role untouched.
func (r *MemoryRepository) Upsert(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.users[user.ID]; ok {
		existing.Email = user.Email
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.ProfileImageURL = user.ProfileImageURL
		existing.UpdatedAt = now
		r.users[user.ID] = existing
		return existing, nil
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

// UpdateContact sets the self-service contact fields.
func (r *MemoryRepository) UpdateContact(_ context.Context, id, phone, bio string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	user.Phone = phone
	user.Bio = bio
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return &user, nil
}

// List returns all users ordered by creation time.
func (r *MemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
