package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/events"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/llm"
	"github.com/iamcapote/semantic-flow-sub001/session"
)

// LLMChatHandler forwards a chat completion to the caller's provider. With a
// providerId the stored base URL is used unless the request names one.
func (s *Server) LLMChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := session.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req llm.ChatRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		if req.ProviderID != "" {
			p, err := s.providers.Get(r.Context(), claims.Subject, req.ProviderID)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			if req.BaseURL == "" {
				req.BaseURL = p.BaseURL
			}
		}

		resp, err := s.llm.Chat(r.Context(), r.Header.Get(llm.HeaderProviderKey), req)
		if err != nil {
			var upErr *errors.UpstreamError
			if errors.As(err, &upErr) {
				log.Warn().Int("status", upErr.Status).Str("user_id", claims.Subject).Msg("LLM provider rejected request")
				writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream_error", "status": upErr.Status})
				return
			}
			writeAppError(w, r, err)
			return
		}
		defer resp.Body.Close()

		if req.Stream {
			events.SetHeaders(w)
			w.WriteHeader(http.StatusOK)
			if _, err := events.Pipe(r.Context(), w, resp.Body); err != nil && r.Context().Err() == nil {
				log.Warn().Err(err).Msg("LLM stream interrupted")
				writeStreamError(w, "stream_interrupted")
			}
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusOK)
		if _, err := events.Pipe(r.Context(), w, resp.Body); err != nil {
			log.Debug().Err(err).Msg("LLM response copy failed")
		}
	}
}
