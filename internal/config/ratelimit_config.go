package config

type RateLimitConfig interface {
	GetAIRateLimitRPM() int
}

type RateLimit struct{}

var _ RateLimitConfig = RateLimit{}

// GetAIRateLimitRPM is the per-client budget for AI and LLM endpoints. Zero disables limiting.
func (RateLimit) GetAIRateLimitRPM() int {
	return GetEnvInt("AI_RATE_LIMIT_RPM", 60)
}
