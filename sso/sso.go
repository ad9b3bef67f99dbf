// Package sso implements the provider side of a DiscourseConnect handshake:
// the app asks the forum to authenticate a user and receives a signed profile.
package sso

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/users"
)

// ProviderPath is the forum endpoint that starts a DiscourseConnect login
const ProviderPath = "/session/sso_provider"

// Provider signs outgoing payloads and verifies returned ones with the shared secret
type Provider struct {
	baseURL string
	secret  []byte
}

// NewProvider returns ErrNotConfigured if either the forum URL or the secret is missing
func NewProvider(baseURL, secret string) (*Provider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "discourse base url")
	}
	if secret == "" {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "sso secret")
	}
	return &Provider{baseURL: baseURL, secret: []byte(secret)}, nil
}

// Callback is the decoded, verified payload returned by the forum
type Callback struct {
	Nonce   string
	Profile users.Profile
}

// BuildLoginURL returns the forum URL the browser is redirected to
func (p *Provider) BuildLoginURL(nonce, returnURL string) (string, error) {
	if nonce == "" || returnURL == "" {
		return "", errors.Wrapf(errors.ErrInvalidRequest, "nonce and return url are required")
	}
	values := url.Values{}
	values.Set("nonce", nonce)
	values.Set("return_sso_url", returnURL)

	payload := base64.StdEncoding.EncodeToString([]byte(values.Encode()))
	query := url.Values{}
	query.Set("sso", payload)
	query.Set("sig", p.Sign(payload))
	return p.baseURL + ProviderPath + "?" + query.Encode(), nil
}

// Sign returns hex(HMAC-SHA256(secret, payload))
func (p *Provider) Sign(payload string) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseCallback verifies sig over the base64 payload and decodes the profile.
// The caller still has to compare the nonce with the one it issued.
func (p *Provider) ParseCallback(payload, sig string) (*Callback, error) {
	if payload == "" || sig == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "missing sso or sig")
	}

	expected := p.Sign(payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return nil, errors.ErrInvalidSignature
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "decode sso payload")
	}
	values, err := url.ParseQuery(string(decoded))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "parse sso payload")
	}

	cb := &Callback{
		Nonce: values.Get("nonce"),
		Profile: users.Profile{
			ID:        values.Get("external_id"),
			Username:  values.Get("username"),
			Name:      values.Get("name"),
			Email:     values.Get("email"),
			AvatarURL: values.Get("avatar_url"),
			Admin:     parseBool(values.Get("admin")),
			Moderator: parseBool(values.Get("moderator")),
			Groups:    splitList(values.Get("groups")),
		},
	}
	if cb.Nonce == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "sso payload has no nonce")
	}
	if cb.Profile.ID == "" || cb.Profile.Username == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "sso payload has no user identity")
	}
	return cb, nil
}

func parseBool(v string) bool {
	return v == "true"
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
