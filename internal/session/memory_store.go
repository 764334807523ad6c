package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map, for non-persistent
// deployments. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns the live session record with the given id, or nil if none exists.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, nil
	}

	copied := rec
	copied.Payload = append([]byte(nil), rec.Payload...)
	return &copied, nil
}

// Put inserts or overwrites the session record.
func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Payload = append([]byte(nil), rec.Payload...)
	s.records[rec.ID] = rec
	return nil
}

// Delete removes the session record, if present.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// DeleteExpired removes all expired session records.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
