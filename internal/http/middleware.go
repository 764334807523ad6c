package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"homestead/internal/auth"
	"homestead/internal/users"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", duration.String())
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the per-request authentication result the gate injects into
// the request context.
type Identity struct {
	SessionID string
	Session   auth.Session
}

// IdentityFromContext extracts the authenticated identity from the request
// context. Returns nil if the auth middleware hasn't populated the context.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey).(*Identity)
	return identity
}

// newAuthMiddleware gates a route group on a live session. Expired sessions
// are silently refreshed before the request proceeds; a session that cannot
// be refreshed gets a 401 while its record stays in the store.
func newAuthMiddleware(manager *auth.Manager, cookies *sessionCookies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := cookies.read(r)
			if !ok {
				unauthorized(w)
				return
			}

			sess, err := manager.Load(r.Context(), id)
			if err != nil {
				if errors.Is(err, auth.ErrNoSession) {
					unauthorized(w)
					return
				}
				logger.Error("session load failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			sess, err = manager.RefreshIfNeeded(r.Context(), id, sess)
			if err != nil {
				if errors.Is(err, auth.ErrRefresh) || errors.Is(err, auth.ErrNotRefreshable) {
					unauthorized(w)
					return
				}
				logger.Error("session refresh failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, &Identity{SessionID: id, Session: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

// newRoleMiddleware gates a route group on the durable user role. The role
// is read from storage on every request so a revoked role takes effect
// immediately, not at next login.
func newRoleMiddleware(svc *users.Service, logger *slog.Logger, allowed ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				unauthorized(w)
				return
			}

			role := users.DefaultRole
			user, err := svc.Get(r.Context(), identity.Session.Claims.Sub)
			switch {
			case err == nil:
				role = user.Role
			case errors.Is(err, users.ErrNotFound):
				// A session without a stored record carries the default role.
			default:
				logger.Error("role lookup failed", "sub", identity.Session.Claims.Sub, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]any{
				"message":       "Forbidden",
				"requiredRoles": allowed,
				"currentRole":   role,
			})
		})
	}
}

func newSecurityHeadersMiddleware(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			if production {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
