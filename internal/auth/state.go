package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateState generates a cryptographically secure random state string
// for CSRF protection of the authorization-code flow.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
