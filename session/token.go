package session

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims is the session token payload: {sub, user, iat, exp}
type Claims struct {
	User users.Profile `json:"user"`
	jwtlib.RegisteredClaims
}

// ExpiresAtTime returns the expiry as a time, zero if the claim is absent
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Manager issues and verifies stateless session tokens. There is no
// server-side revocation list; a token is valid until it expires.
type Manager struct {
	signer *HMACSigner
	ttl    time.Duration
}

// NewManager returns ErrNotConfigured when no secret is set
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "session secret")
	}
	signer, err := NewHMACSigner(secret)
	if err != nil {
		return nil, err
	}
	return &Manager{signer: signer, ttl: ttl}, nil
}

// TTL is the fixed lifetime of every issued session
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the profile
func (m *Manager) Issue(profile users.Profile) (token string, expiresAt time.Time, err error) {
	if profile.ID == "" {
		return "", time.Time{}, errors.Wrapf(errors.ErrInvalidRequest, "profile id is required")
	}
	now := NowTimeFunc()
	// JWT NumericDate has second precision
	expiresAt = now.Add(m.ttl).Truncate(time.Second)

	claims := Claims{
		User: profile,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}
	token, err = m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify checks signature and expiry. A bad signature or malformed token
// yields ErrInvalidToken; an expired one yields ErrTokenExpired.
func (m *Manager) Verify(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(raw, claims, m.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "%s", err.Error())
	}
	if !token.Valid || claims.Subject == "" || claims.Subject != claims.User.ID {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
