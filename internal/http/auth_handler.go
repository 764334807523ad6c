package http

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homestead/internal/auth"
)

// oauthStatePayload holds the CSRF state and optional redirect path.
type oauthStatePayload struct {
	State      string `json:"s"`
	RedirectTo string `json:"r,omitempty"`
}

// isValidRedirectPath validates that a path is a safe relative redirect.
// It prevents open redirect attacks by ensuring the path:
// - Starts with a single "/" (not "//")
// - Has no scheme or host component
// - Cannot be bypassed via URL encoding
func isValidRedirectPath(path string) bool {
	if path == "" {
		return false
	}

	// Decode to catch encoded bypass attempts like /%2f%2f
	decoded, err := url.QueryUnescape(path)
	if err != nil {
		return false
	}

	// Must start with / but not //
	if !strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, "//") {
		return false
	}

	// Parse as URL to ensure no scheme or host
	parsed, err := url.Parse(decoded)
	if err != nil {
		return false
	}

	// Reject if it has a scheme or host (would be absolute URL)
	if parsed.Scheme != "" || parsed.Host != "" {
		return false
	}

	return true
}

const (
	oauthStateCookieName = "homestead_oauth_state"
	oauthStateCookieTTL  = 10 * time.Minute
)

type oidcClient interface {
	AuthCodeURL(ctx context.Context, host, state, prompt string) (string, error)
	Exchange(ctx context.Context, host, code string) (auth.Session, error)
	LogoutURL(ctx context.Context, host string) string
}

// AuthHandler handles the authorization-code flow endpoints.
type AuthHandler struct {
	oidc         oidcClient
	manager      *auth.Manager
	cookies      *sessionCookies
	logger       *slog.Logger
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(oidc oidcClient, manager *auth.Manager, cookies *sessionCookies, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		oidc:         oidc,
		manager:      manager,
		cookies:      cookies,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// Login handles GET /api/login
// Redirects the user to the identity provider's consent screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Store state in cookie for CSRF protection
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/api",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateCookieTTL.Seconds()),
	})

	// Preserve redirectTo query param in state payload
	redirectTo := r.URL.Query().Get("redirectTo")
	payload := oauthStatePayload{State: state}
	if redirectTo != "" && isValidRedirectPath(redirectTo) {
		payload.RedirectTo = redirectTo
	}

	// Encode state as base64 JSON to avoid delimiter issues
	stateJSON, _ := json.Marshal(payload)
	fullState := base64.RawURLEncoding.EncodeToString(stateJSON)

	authURL, err := h.oidc.AuthCodeURL(r.Context(), r.Host, fullState, r.URL.Query().Get("prompt"))
	if err != nil {
		h.logger.Error("failed to build authorization URL", "host", r.Host, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// Callback handles GET /api/callback
// Exchanges the authorization code for tokens, establishes the session under
// a fresh identifier and redirects back into the application. Every failure
// lands on the login entry point; a failed login is restartable, never stuck.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// Verify state (CSRF protection)
	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil {
		h.logger.Warn("oauth callback: missing state cookie")
		h.redirectToLogin(w, r)
		return
	}

	stateParam := r.URL.Query().Get("state")
	expectedState := stateCookie.Value
	redirectTo := "/"

	// Decode base64 JSON state payload
	stateBytes, err := base64.RawURLEncoding.DecodeString(stateParam)
	if err != nil {
		h.logger.Warn("oauth callback: invalid state encoding")
		h.redirectToLogin(w, r)
		return
	}

	var statePayload oauthStatePayload
	if err := json.Unmarshal(stateBytes, &statePayload); err != nil {
		h.logger.Warn("oauth callback: invalid state JSON")
		h.redirectToLogin(w, r)
		return
	}

	// Extract and validate redirectTo
	if statePayload.RedirectTo != "" && isValidRedirectPath(statePayload.RedirectTo) {
		redirectTo = statePayload.RedirectTo
	}

	if subtle.ConstantTimeCompare([]byte(statePayload.State), []byte(expectedState)) != 1 {
		h.logger.Warn("oauth callback: state mismatch")
		h.redirectToLogin(w, r)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})

	// Check for an error relayed by the provider
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider error", "error", errParam, "description", r.URL.Query().Get("error_description"))
		h.redirectToLogin(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("oauth callback: missing authorization code")
		h.redirectToLogin(w, r)
		return
	}

	sess, err := h.oidc.Exchange(r.Context(), r.Host, code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		h.redirectToLogin(w, r)
		return
	}

	// Any session established before login is discarded; the new session
	// gets an identifier the browser has never seen.
	priorID, _ := h.cookies.read(r)
	newID, err := h.manager.Establish(r.Context(), priorID, sess)
	if err != nil {
		h.logger.Error("oauth callback: session establishment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.cookies.write(w, newID); err != nil {
		h.logger.Error("oauth callback: session cookie encoding failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("login successful", "sub", sess.Claims.Sub)
	http.Redirect(w, r, redirectTo, http.StatusTemporaryRedirect)
}

// Logout handles GET /api/logout
// Destroys the session record, clears the cookie and sends the browser to
// the provider's end-session endpoint.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.cookies.read(r); ok {
		if err := h.manager.Destroy(r.Context(), id); err != nil {
			h.logger.Error("logout: session destroy failed", "error", err)
		}
	}
	h.cookies.clear(w)

	http.Redirect(w, r, h.oidc.LogoutURL(r.Context(), r.Host), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api/login", http.StatusTemporaryRedirect)
}
