package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	DiscourseConfig
	SessionConfig
	StorageConfig
	RateLimitConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppBaseURL() string
	GetEnv() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Discourse
	Session
	Storage
	RateLimit
}

// New loads the optional env files (".env" when none are given) and returns
// a Config reading from the process environment.
func New(envFiles ...string) Config {
	// A missing .env file is not an error; the process environment is enough.
	_ = godotenv.Load(envFiles...)
	return mainConfig{}
}
