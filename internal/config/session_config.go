package config

import "time"

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
	GetNonceTTL() time.Duration
	GetWebhookDedupeTTL() time.Duration
	GetWebhookDedupeSweepSize() int
	GetSSEPingInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret falls back to the SSO shared secret so a single secret is enough for development.
func (Session) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", Discourse{}.GetDiscourseSSOSecret())
}

func (Session) GetSessionTTL() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (Session) GetNonceTTL() time.Duration {
	return 10 * time.Minute
}

func (Session) GetWebhookDedupeTTL() time.Duration {
	return 2 * time.Minute
}

func (Session) GetWebhookDedupeSweepSize() int {
	return 500
}

func (Session) GetSSEPingInterval() time.Duration {
	return 25 * time.Second
}
