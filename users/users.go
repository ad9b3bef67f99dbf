package users

import (
	"strings"
	"time"
)

// Profile is the identity handed over by the forum during SSO. It is also the
// "user" object carried inside the session token.
type Profile struct {
	ID        string   `json:"id"`                  // Forum external_id
	Username  string   `json:"username"`            // Forum username
	Name      string   `json:"name,omitempty"`      // Display name
	Email     string   `json:"email,omitempty"`     // Email address
	AvatarURL string   `json:"avatarUrl,omitempty"` // Avatar URL as returned by the forum
	Admin     bool     `json:"admin,omitempty"`     // Forum admin flag
	Moderator bool     `json:"moderator,omitempty"` // Forum moderator flag
	Groups    []string `json:"groups,omitempty"`    // Forum group names
}

type User struct {
	Profile
	CreatedAt   time.Time `json:"createdAt"`   // First SSO login
	LastLoginAt time.Time `json:"lastLoginAt"` // Most recent SSO login
}

// DisplayName returns the name, falling back to the username
func (p Profile) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.Username
}

// CanReadInbox reports whether the profile may read the private messages of username
func (p Profile) CanReadInbox(username string) bool {
	if p.Admin {
		return true
	}
	return strings.EqualFold(p.Username, username)
}
