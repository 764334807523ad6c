// Package session provides the durable store mapping opaque session
// identifiers to serialized authentication state.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one browser session's persisted state. Payload is opaque to the
// store; ExpiresAt is the absolute expiry after which the record is garbage.
type Record struct {
	ID        string
	Payload   []byte
	ExpiresAt time.Time
}

// Store defines the interface for session persistence. Get returns nil when
// no live record exists; expired records are treated as absent.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// NewID generates a fresh opaque session identifier.
func NewID() string {
	return uuid.NewString()
}
