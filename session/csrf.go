package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// csrfTokenBytes is the entropy of a CSRF token; hex encoding doubles the length
const csrfTokenBytes = 24

// NewCSRFToken returns a random 24-byte hex value for the double-submit cookie
func NewCSRFToken() (string, error) {
	return randomHex(csrfTokenBytes)
}

// NewNonce returns a random 16-byte hex value
func NewNonce() (string, error) {
	return randomHex(16)
}

// CSRFMatches compares the cookie value against the client-supplied header.
// Both must be present.
func CSRFMatches(cookieValue, headerValue string) bool {
	if cookieValue == "" || headerValue == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) == 1
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
