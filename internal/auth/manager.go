package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"golang.org/x/sync/singleflight"

	"homestead/internal/session"
)

// defaultSessionTTL is the absolute lifetime of a session record,
// independent of token expiry.
const defaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrNoSession is returned when no live session record exists for an id.
	ErrNoSession = errors.New("no active session")

	// ErrNotRefreshable is returned when a session's tokens have expired and
	// no refresh is possible. The session record is left in place; only an
	// explicit logout clears it.
	ErrNotRefreshable = errors.New("session expired and not refreshable")
)

// TokenRefresher exchanges a refresh token for fresh session state.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// Upserter persists the durable user record for verified identity claims.
type Upserter interface {
	Upsert(ctx context.Context, claims Claims) error
}

// Manager owns the lifecycle of browser sessions: establishing them after a
// successful callback, validating and silently refreshing them per request,
// and destroying them on logout.
type Manager struct {
	store  session.Store
	tokens TokenRefresher
	users  Upserter
	logger *slog.Logger
	ttl    time.Duration
	sf     singleflight.Group
}

// NewManager creates a new Manager. A zero ttl selects the default
// one-week session lifetime.
func NewManager(store session.Store, tokens TokenRefresher, users Upserter, logger *slog.Logger, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = defaultSessionTTL
	}
	return &Manager{
		store:  store,
		tokens: tokens,
		users:  users,
		logger: logger,
		ttl:    ttl,
	}
}

// Establish persists sess under a brand-new session identifier and invokes
// the user upsert collaborator. Any prior session record is discarded;
// issuing a fresh identifier at login prevents session fixation. On error
// no login occurs and nothing is left behind.
func (m *Manager) Establish(ctx context.Context, priorID string, sess Session) (string, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	newID := session.NewID()
	rec := session.Record{ID: newID, Payload: payload, ExpiresAt: time.Now().Add(m.ttl)}
	if err := m.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	if priorID != "" {
		if err := m.store.Delete(ctx, priorID); err != nil {
			m.logger.Warn("failed to discard pre-login session", "error", err)
		}
	}

	if err := m.users.Upsert(ctx, sess.Claims); err != nil {
		_ = m.store.Delete(ctx, newID)
		return "", fmt.Errorf("upsert user on login: %w", err)
	}

	return newID, nil
}

// Load reads the session state stored under id. Returns ErrNoSession when
// no live record exists.
func (m *Manager) Load(ctx context.Context, id string) (Session, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if rec == nil {
		return Session{}, ErrNoSession
	}

	var sess Session
	if err := json.Unmarshal(rec.Payload, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

// RefreshIfNeeded returns sess unchanged while its tokens are valid. Once
// expired it performs a silent refresh and rewrites the record in place
// under the same identifier (no new trust boundary is crossed, so no
// regeneration). Concurrent refreshes for the same session are collapsed.
// On refresh failure the stale record is retained and the error reports
// the session as no longer authenticated.
func (m *Manager) RefreshIfNeeded(ctx context.Context, id string, sess Session) (Session, error) {
	if sess.Valid(time.Now()) {
		return sess, nil
	}
	if !sess.Refreshable() || sess.ExpiresAt == 0 {
		return Session{}, ErrNotRefreshable
	}

	v, err, _ := m.sf.Do(id, func() (any, error) {
		// Another request may have refreshed this session already.
		current, err := m.Load(ctx, id)
		if err == nil && current.Valid(time.Now()) {
			return current, nil
		}

		fresh, err := m.tokens.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			return nil, err
		}

		merged := mergeSessions(sess, fresh)
		payload, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}

		rec := session.Record{ID: id, Payload: payload, ExpiresAt: time.Now().Add(m.ttl)}
		if err := m.store.Put(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist refreshed session: %w", err)
		}

		// A refresh that returned fresh claims may carry profile changes.
		if fresh.Claims.Sub != "" {
			if err := m.users.Upsert(ctx, merged.Claims); err != nil {
				m.logger.Warn("user upsert after refresh failed", "sub", merged.Claims.Sub, "error", err)
			}
		}

		return merged, nil
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

// Destroy removes the session record.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// mergeSessions overlays a token response onto the previous session state:
// claims and refresh tokens are carried forward when the provider omitted
// them from the refresh response.
func mergeSessions(old, fresh Session) Session {
	merged := fresh
	if merged.Claims.Sub == "" {
		merged.Claims = old.Claims
	}
	if merged.RefreshToken == "" {
		merged.RefreshToken = old.RefreshToken
	}
	return merged
}
