package server

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/webhook"
)

// eventDiscourse is the SSE event name used for forum webhook projections
const eventDiscourse = "discourse"

// WebhookHandler verifies a forum delivery, drops repeats and fans the projection out
func (s *Server) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.GetDiscourseWebhookSecret()
		if secret == "" {
			writeError(w, http.StatusNotImplemented, "webhook_not_configured")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		if err := webhook.VerifySignature(secret, body, r.Header.Get(webhook.HeaderSignature)); err != nil {
			if errors.Is(err, errors.ErrNotConfigured) {
				writeError(w, http.StatusNotImplemented, "webhook_not_configured")
				return
			}
			log.Debug().Err(err).Msg("webhook rejected")
			writeError(w, http.StatusUnauthorized, "invalid_signature")
			return
		}

		seen, err := s.deduper.Seen(r.Context(), webhook.BodyHash(body))
		if err != nil {
			// Dedupe is a cache; a failing store lets the delivery through
			log.Warn().Err(err).Msg("webhook dedupe unavailable")
		}
		if seen {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "deduped": true})
			return
		}

		projection := webhook.Project(r.Header, body, NowTimeFunc())
		delivered := s.hub.Broadcast(eventDiscourse, projection)
		log.Debug().
			Str("event", projection.Event).
			Str("type", projection.Type).
			Int("subscribers", delivered).
			Msg("webhook broadcast")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
