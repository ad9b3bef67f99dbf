package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/session"
	"github.com/iamcapote/semantic-flow-sub001/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

func (s *Server) ssoCallbackURL() string {
	return s.config.GetAppBaseURL() + RouteSSOCallback
}

// SSOLoginHandler starts a DiscourseConnect login
func (s *Server) SSOLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sso == nil || s.sessions == nil {
			writeError(w, http.StatusInternalServerError, "sso_not_configured")
			return
		}

		nonce, err := session.NewNonce()
		if err != nil {
			log.Err(err).Msg("SSO login: nonce")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		loginURL, err := s.sso.BuildLoginURL(nonce, s.ssoCallbackURL())
		if err != nil {
			log.Err(err).Msg("SSO login: build url")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		s.SetNonceCookie(w, r, nonce, safeReturnTo(r.URL.Query().Get("returnTo")))
		http.Redirect(w, r, loginURL, http.StatusFound)
	}
}

// SSOCallbackHandler completes the login: verify, upsert, issue cookies, redirect
func (s *Server) SSOCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sso == nil || s.sessions == nil {
			writeError(w, http.StatusInternalServerError, "sso_not_configured")
			return
		}

		query := r.URL.Query()
		cb, err := s.sso.ParseCallback(query.Get("sso"), query.Get("sig"))
		if err != nil {
			if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrInvalidSignature) {
				log.Debug().Err(err).Msg("SSO callback rejected")
				writeError(w, http.StatusBadRequest, "invalid_sso_payload")
				return
			}
			log.Err(err).Msg("SSO callback: parse")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		nonce, returnTo, ok := readNonceCookie(r)
		if !ok || !session.CSRFMatches(nonce, cb.Nonce) {
			log.Debug().Err(errors.ErrNonceMismatch).Msg("SSO callback rejected")
			writeError(w, http.StatusBadRequest, "nonce_mismatch")
			return
		}

		now := NowTimeFunc().UTC()
		if err := s.users.Upsert(r.Context(), &users.User{Profile: cb.Profile, LastLoginAt: now}); err != nil {
			log.Err(err).Str("user_id", cb.Profile.ID).Msg("SSO callback: upsert user")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		token, _, err := s.sessions.Issue(cb.Profile)
		if err != nil {
			log.Err(err).Msg("SSO callback: issue session")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		csrfToken, err := session.NewCSRFToken()
		if err != nil {
			log.Err(err).Msg("SSO callback: csrf token")
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		s.SetSessionCookies(w, r, token, csrfToken)
		s.ClearNonceCookie(w, r)
		if returnTo == "" {
			returnTo = "/"
		}
		log.Info().Str("user_id", cb.Profile.ID).Str("username", cb.Profile.Username).Str("name", cb.Profile.DisplayName()).Msg("SSO login")
		http.Redirect(w, r, s.config.GetAppBaseURL()+returnTo, http.StatusFound)
	}
}
