package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	appBaseURLVar = "APP_BASE_URL"
	nodeEnvVar    = "NODE_ENV"
	appEnvVar     = "APP_ENV"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Semantic Flow")
}

// GetAppBaseURL returns the public URL of the single-page app (e.g., "https://flow.example.com").
// SSO callbacks redirect here once the session cookies are set.
func (EnvVars) GetAppBaseURL() string {
	return strings.TrimRight(GetEnv(appBaseURLVar, "http://localhost:5173"), "/")
}

// GetEnv prefers NODE_ENV (what the deployment tooling sets) and falls back to APP_ENV.
func (EnvVars) GetEnv() string {
	env := GetEnv(nodeEnvVar, os.Getenv(appEnvVar))
	if env == "" {
		return EnvDevelopment
	}
	return strings.ToLower(env)
}

func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == EnvProduction
}

func GetEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
