package config_test

import (
	"testing"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars(t *testing.T) {
	t.Run("port gets a colon prefix", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		require.Equal(t, ":9090", config.EnvVars{}.GetPort())
	})

	t.Run("NODE_ENV wins over APP_ENV", func(t *testing.T) {
		t.Setenv("NODE_ENV", "Production")
		t.Setenv("APP_ENV", "staging")
		require.Equal(t, config.EnvProduction, config.EnvVars{}.GetEnv())
		require.True(t, config.EnvVars{}.IsProduction())
	})

	t.Run("defaults to development", func(t *testing.T) {
		t.Setenv("NODE_ENV", "")
		t.Setenv("APP_ENV", "")
		require.Equal(t, config.EnvDevelopment, config.EnvVars{}.GetEnv())
	})

	t.Run("app base url trailing slash trimmed", func(t *testing.T) {
		t.Setenv("APP_BASE_URL", "https://flow.example.com/")
		require.Equal(t, "https://flow.example.com", config.EnvVars{}.GetAppBaseURL())
	})
}

func TestCorsOrigins(t *testing.T) {
	t.Setenv("APP_BASE_URL", "https://flow.example.com")
	t.Setenv("CORS_ORIGINS", " https://a.example.com/, ,https://b.example.com")

	origins := config.Cors{}.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://flow.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}

func TestSessionSecretFallback(t *testing.T) {
	t.Setenv("DISCOURSE_SSO_SECRET", "sso-secret")
	t.Setenv("SESSION_SECRET", "")
	require.Equal(t, "sso-secret", config.Session{}.GetSessionSecret())

	t.Setenv("SESSION_SECRET", "session-secret")
	require.Equal(t, "session-secret", config.Session{}.GetSessionSecret())
	require.Equal(t, 7*24*time.Hour, config.Session{}.GetSessionTTL())
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("AI_RATE_LIMIT_RPM", "not-a-number")
	require.Equal(t, 60, config.RateLimit{}.GetAIRateLimitRPM())

	t.Setenv("AI_RATE_LIMIT_RPM", "5")
	require.Equal(t, 5, config.RateLimit{}.GetAIRateLimitRPM())
}
