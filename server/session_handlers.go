package server

import (
	"net/http"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/session"
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true,
			"ts": time.Now().UnixMilli(),
		})
	}
}

// PublicConfig is what the SPA may know about the deployment
type PublicConfig struct {
	DiscourseBaseURL string `json:"discourseBaseUrl"`
	SSOEnabled       bool   `json:"ssoEnabled"`
	WebhookEnabled   bool   `json:"webhookEnabled"`
	AIEnabled        bool   `json:"aiEnabled"`
	Env              string `json:"env"`
	AppName          string `json:"appName"`
}

func (s *Server) ConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forumURL := ""
		if s.forum != nil {
			forumURL = s.forum.BaseURL()
		}
		writeJSON(w, http.StatusOK, PublicConfig{
			DiscourseBaseURL: forumURL,
			SSOEnabled:       s.sso != nil && s.sessions != nil,
			WebhookEnabled:   s.config.GetDiscourseWebhookSecret() != "",
			AIEnabled:        s.forum != nil && s.forum.HasAPIKey(),
			Env:              s.env,
			AppName:          s.config.GetAppName(),
		})
	}
}

// MeHandler answers {user, exp}; RequireSession has already rejected anonymous callers
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := session.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user": claims.User,
			"exp":  claims.ExpiresAtTime().Unix(),
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ClearSessionCookies(w, r)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
