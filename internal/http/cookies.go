package http

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	sessionCookieName = "homestead_session"
	sessionCookieTTL  = 7 * 24 * time.Hour
)

// sessionCookies signs and verifies the session-id cookie. The cookie value
// is only the opaque store identifier; all session state lives server-side.
type sessionCookies struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func newSessionCookies(secret string, secure bool) *sessionCookies {
	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(int(sessionCookieTTL.Seconds()))
	return &sessionCookies{codec: codec, secure: secure}
}

// read returns the verified session id from the request cookie.
func (c *sessionCookies) read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var id string
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &id); err != nil {
		return "", false
	}
	return id, true
}

// write sets a signed session cookie for the given session id.
func (c *sessionCookies) write(w http.ResponseWriter, id string) error {
	encoded, err := c.codec.Encode(sessionCookieName, id)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionCookieTTL.Seconds()),
	})
	return nil
}

// clear removes the session cookie.
func (c *sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
	})
}
