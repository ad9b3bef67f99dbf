package server

import (
	"net/http"
	"strings"
	"time"
)

const (
	// sessionCookieName holds the signed session token
	sessionCookieName = "sf_session"
	// csrfCookieName is readable by the SPA, which echoes it in headerCSRF
	csrfCookieName = "sf_csrf"
	// nonceCookieName holds the SSO nonce between login and callback
	nonceCookieName = "sf_sso_nonce"

	headerCSRF = "X-CSRF-Token"
)

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.IsProduction() || getScheme(r) == "https"
}

func (s *Server) newCookie(r *http.Request, name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	}
}

// SetSessionCookies sets both cookies for the session lifetime. Sessions must be configured.
func (s *Server) SetSessionCookies(w http.ResponseWriter, r *http.Request, token, csrfToken string) {
	ttl := s.sessions.TTL()
	http.SetCookie(w, s.newCookie(r, sessionCookieName, token, ttl, true))
	http.SetCookie(w, s.newCookie(r, csrfCookieName, csrfToken, ttl, false))
}

func (s *Server) ClearSessionCookies(w http.ResponseWriter, r *http.Request) {
	for _, c := range []*http.Cookie{
		s.newCookie(r, sessionCookieName, "", 0, true),
		s.newCookie(r, csrfCookieName, "", 0, false),
	} {
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// SetNonceCookie stores the nonce and the optional return path as "nonce|path"
func (s *Server) SetNonceCookie(w http.ResponseWriter, r *http.Request, nonce, returnTo string) {
	value := nonce
	if returnTo != "" {
		value += "|" + returnTo
	}
	http.SetCookie(w, s.newCookie(r, nonceCookieName, value, s.config.GetNonceTTL(), true))
}

func (s *Server) ClearNonceCookie(w http.ResponseWriter, r *http.Request) {
	c := s.newCookie(r, nonceCookieName, "", 0, true)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// readNonceCookie splits the nonce cookie. ok is false when it is missing or empty.
func readNonceCookie(r *http.Request) (nonce, returnTo string, ok bool) {
	c, err := r.Cookie(nonceCookieName)
	if err != nil || c.Value == "" {
		return "", "", false
	}
	nonce, returnTo, _ = strings.Cut(c.Value, "|")
	return nonce, safeReturnTo(returnTo), nonce != ""
}

// safeReturnTo accepts only same-site relative paths, anything else becomes ""
func safeReturnTo(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	if strings.ContainsAny(p, "\r\n|") {
		return ""
	}
	return p
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
