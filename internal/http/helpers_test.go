package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"homestead/internal/auth"
	"homestead/internal/session"
	"homestead/internal/users"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// refresherStub counts refresh calls; the zero value fails every refresh.
type refresherStub struct {
	refresh func(ctx context.Context, refreshToken string) (auth.Session, error)
	calls   int
}

func (s *refresherStub) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	s.calls++
	if s.refresh == nil {
		return auth.Session{}, auth.ErrRefresh
	}
	return s.refresh(ctx, refreshToken)
}

// userRepoStub implements users.Repository with overridable behavior.
type userRepoStub struct {
	find          func(ctx context.Context, id string) (*users.User, error)
	upsert        func(ctx context.Context, user users.User) (users.User, error)
	updateContact func(ctx context.Context, id, phone, bio string) (*users.User, error)
	list          func(ctx context.Context) ([]users.User, error)
}

func (s *userRepoStub) Find(ctx context.Context, id string) (*users.User, error) {
	if s.find == nil {
		return nil, nil
	}
	return s.find(ctx, id)
}

func (s *userRepoStub) Upsert(ctx context.Context, user users.User) (users.User, error) {
	if s.upsert == nil {
		return user, nil
	}
	return s.upsert(ctx, user)
}

func (s *userRepoStub) UpdateContact(ctx context.Context, id, phone, bio string) (*users.User, error) {
	if s.updateContact == nil {
		return nil, nil
	}
	return s.updateContact(ctx, id, phone, bio)
}

func (s *userRepoStub) List(ctx context.Context) ([]users.User, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx)
}

// storeStub implements session.Store with overridable behavior.
type storeStub struct {
	get    func(ctx context.Context, id string) (*session.Record, error)
	put    func(ctx context.Context, rec session.Record) error
	delete func(ctx context.Context, id string) error
}

func (s *storeStub) Get(ctx context.Context, id string) (*session.Record, error) {
	if s.get == nil {
		return nil, nil
	}
	return s.get(ctx, id)
}

func (s *storeStub) Put(ctx context.Context, rec session.Record) error {
	if s.put == nil {
		return nil
	}
	return s.put(ctx, rec)
}

func (s *storeStub) Delete(ctx context.Context, id string) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(ctx, id)
}

func (s *storeStub) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// gateFixture wires a manager with in-memory stores for middleware and
// handler tests.
type gateFixture struct {
	store     *session.MemoryStore
	cookies   *sessionCookies
	manager   *auth.Manager
	users     *users.Service
	refresher *refresherStub
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	store := session.NewMemoryStore()
	refresher := &refresherStub{}
	svc := users.NewService(users.NewMemoryRepository())
	return &gateFixture{
		store:     store,
		cookies:   newSessionCookies("0123456789abcdef0123456789abcdef", false),
		manager:   auth.NewManager(store, refresher, svc, testLogger(), 0),
		users:     svc,
		refresher: refresher,
	}
}

// seed persists sess directly in the store and returns its id plus a signed
// cookie a browser would present for it.
func (f *gateFixture) seed(t *testing.T, sess auth.Session) (string, *http.Cookie) {
	t.Helper()
	payload, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("failed to encode session: %v", err)
	}
	id := session.NewID()
	rec := session.Record{ID: id, Payload: payload, ExpiresAt: time.Now().Add(time.Hour)}
	if err := f.store.Put(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return id, f.signedCookie(t, id)
}

func (f *gateFixture) signedCookie(t *testing.T, id string) *http.Cookie {
	t.Helper()
	encoded, err := f.cookies.codec.Encode(sessionCookieName, id)
	if err != nil {
		t.Fatalf("failed to encode cookie: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: encoded}
}

func validSession(sub string) auth.Session {
	return auth.Session{
		Claims:       auth.Claims{Sub: sub, Email: sub + "@example.com"},
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func expiredSession(sub string) auth.Session {
	sess := validSession(sub)
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	return sess
}

// requestWithIdentity builds a request whose context already passed the
// auth gate.
func requestWithIdentity(method, target string, body io.Reader, sub string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	identity := &Identity{SessionID: "session-id", Session: auth.Session{Claims: auth.Claims{Sub: sub}}}
	return req.WithContext(context.WithValue(req.Context(), identityContextKey, identity))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}
