package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/discourse"
	"github.com/iamcapote/semantic-flow-sub001/events"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/session"
)

type aiSearchRequest struct {
	Query string `json:"query"`
}

type aiStreamRequest struct {
	PersonaID   int64  `json:"personaId"`
	PersonaName string `json:"personaName"`
	Query       string `json:"query"`
	TopicID     int64  `json:"topicId"`
}

func (s *Server) AISearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForumAPIKey(w) {
			return
		}
		var req aiSearchRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		body, err := s.forum.Search(r.Context(), req.Query)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeRawJSON(w, body)
	}
}

func (s *Server) AIPersonasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForumAPIKey(w) {
			return
		}
		body, err := s.forum.Personas(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeRawJSON(w, body)
	}
}

// AIStreamHandler pipes the persona reply stream. Once the response has
// started, failures are reported as an "error" event rather than a status.
func (s *Server) AIStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireForumAPIKey(w) {
			return
		}
		var req aiStreamRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		upstreamReq := discourse.StreamRequest{
			PersonaID: req.PersonaID,
			Persona:   req.PersonaName,
			Query:     req.Query,
			TopicID:   req.TopicID,
		}
		if claims, ok := session.FromContext(r.Context()); ok {
			upstreamReq.Username = claims.User.Username
		}

		resp, err := s.forum.StreamReply(r.Context(), upstreamReq)
		if errors.Is(err, errors.ErrInvalidRequest) {
			writeAppError(w, r, err)
			return
		}

		events.SetHeaders(w)
		w.WriteHeader(http.StatusOK)
		if err != nil {
			log.Warn().Err(err).Msg("AI stream: upstream failed")
			writeStreamError(w, "upstream_error")
			return
		}
		defer resp.Body.Close()

		if _, err := events.Pipe(r.Context(), w, resp.Body); err != nil && r.Context().Err() == nil {
			log.Warn().Err(err).Msg("AI stream: pipe interrupted")
			writeStreamError(w, "stream_interrupted")
		}
	}
}

func writeStreamError(w http.ResponseWriter, message string) {
	data, _ := json.Marshal(map[string]string{"message": message})
	if err := events.WriteEvent(w, "error", data); err != nil {
		log.Debug().Err(err).Msg("write stream error")
		return
	}
	_ = http.NewResponseController(w).Flush()
}
