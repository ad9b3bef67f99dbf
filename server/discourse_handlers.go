package server

import (
	"net/http"
	"strconv"

	"github.com/iamcapote/semantic-flow-sub001/discourse"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/session"
)

const maxSeedLookups = 50

// requireForum writes 501 and returns false when no forum is configured
func (s *Server) requireForum(w http.ResponseWriter) bool {
	if s.forum == nil {
		writeError(w, http.StatusNotImplemented, "discourse_not_configured")
		return false
	}
	return true
}

// requireForumAPIKey writes 501 and returns false when the admin API key is missing
func (s *Server) requireForumAPIKey(w http.ResponseWriter) bool {
	if !s.requireForum(w) {
		return false
	}
	if !s.forum.HasAPIKey() {
		writeError(w, http.StatusNotImplemented, "discourse_api_key_not_configured")
		return false
	}
	return true
}

func (s *Server) LatestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForum(w) {
			return
		}
		page := 0
		if raw := r.URL.Query().Get("page"); raw != "" {
			var err error
			if page, err = strconv.Atoi(raw); err != nil || page < 0 {
				writeError(w, http.StatusBadRequest, "page must be a non-negative integer")
				return
			}
		}
		body, err := s.forum.Latest(r.Context(), page)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeRawJSON(w, body)
	}
}

func (s *Server) TopicHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForum(w) {
			return
		}
		id, err := discourse.ParseTopicID(r.PathValue("id"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		body, err := s.forum.Topic(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeRawJSON(w, body)
	}
}

// PrivateMessagesHandler serves a PM inbox. Only the owner or an admin may read it.
func (s *Server) PrivateMessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForum(w) {
			return
		}
		claims, _ := session.FromContext(r.Context())
		username := r.PathValue("username")
		if !discourse.ValidUsername(username) {
			writeError(w, http.StatusBadRequest, "invalid username")
			return
		}
		if claims == nil || !claims.User.CanReadInbox(username) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		body, err := s.forum.PrivateMessages(r.Context(), username)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeRawJSON(w, body)
	}
}

// SeedHandler creates a context topic, or returns the one that already has the title
func (s *Server) SeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForumAPIKey(w) {
			return
		}
		var req discourse.SeedRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		author := ""
		if claims, ok := session.FromContext(r.Context()); ok {
			author = claims.User.Username
		}
		result, err := s.forum.Seed(r.Context(), req, author, s.config.GetSeedCategoryID())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, result)
	}
}

// SeedsHandler looks up ?titles=a,b,c and answers [{title, topicId|null}]
func (s *Server) SeedsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForumAPIKey(w) {
			return
		}
		titles := discourse.SplitTitles(r.URL.Query().Get("titles"))
		if len(titles) == 0 {
			writeAppError(w, r, errors.Wrapf(errors.ErrInvalidRequest, "titles is required"))
			return
		}
		if len(titles) > maxSeedLookups {
			writeAppError(w, r, errors.Wrapf(errors.ErrInvalidRequest, "at most %d titles", maxSeedLookups))
			return
		}
		results, err := s.forum.LookupSeeds(r.Context(), titles)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
