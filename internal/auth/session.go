package auth

import "time"

// Session is one browser session's authentication state, serialized into
// the session store payload. ExpiresAt mirrors the last token response's
// expiry as epoch seconds and is never set from client input.
type Session struct {
	Claims       Claims `json:"claims"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Valid reports whether the session's tokens are still usable at now.
// A session with no recorded expiry is never valid.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt != 0 && now.Unix() <= s.ExpiresAt
}

// Refreshable reports whether the session holds a refresh token. A session
// without one is authenticated-but-not-refreshable and fails closed on expiry.
func (s Session) Refreshable() bool {
	return s.RefreshToken != ""
}
