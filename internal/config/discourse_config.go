package config

import "strings"

type DiscourseConfig interface {
	GetDiscourseBaseURL() string
	GetDiscourseSSOSecret() string
	GetDiscourseWebhookSecret() string
	GetDiscourseAPIKey() string
	GetDiscourseAPIUsername() string
	GetSeedCategoryID() int
}

type Discourse struct{}

var _ DiscourseConfig = Discourse{}

func (Discourse) GetDiscourseBaseURL() string {
	return strings.TrimRight(GetEnv("DISCOURSE_BASE_URL", ""), "/")
}

func (Discourse) GetDiscourseSSOSecret() string {
	return GetEnv("DISCOURSE_SSO_SECRET", "")
}

func (Discourse) GetDiscourseWebhookSecret() string {
	return GetEnv("DISCOURSE_WEBHOOK_SECRET", "")
}

// GetDiscourseAPIKey is the admin API key used for AI and seed calls.
func (Discourse) GetDiscourseAPIKey() string {
	return GetEnv("API_KEY", "")
}

func (Discourse) GetDiscourseAPIUsername() string {
	return GetEnv("API_USERNAME", "system")
}

func (Discourse) GetSeedCategoryID() int {
	return GetEnvInt("SEED_CATEGORY_ID", 0)
}
