// Package webhook verifies and normalises inbound forum webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

const (
	HeaderSignature = "X-Discourse-Event-Signature"
	HeaderEvent     = "X-Discourse-Event"
	HeaderEventType = "X-Discourse-Event-Type"

	signaturePrefix = "sha256="
)

// Sign returns the header value the forum would send for body
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a "sha256=<hex>" header against the raw body
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return errors.Wrapf(errors.ErrNotConfigured, "webhook secret")
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return errors.ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return errors.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errors.ErrInvalidSignature
	}
	return nil
}

// BodyHash is the dedupe key of a delivery
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
