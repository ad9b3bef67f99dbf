package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/events"
)

// EventsHandler holds an SSE connection open: a "ready" frame first, a
// ping comment on every interval, then every hub broadcast.
func (s *Server) EventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		events.SetHeaders(w)
		w.WriteHeader(http.StatusOK)

		sub := s.hub.Subscribe()
		defer s.hub.Unsubscribe(sub)

		ready, _ := json.Marshal(map[string]any{"ts": time.Now().UnixMilli()})
		if err := events.WriteEvent(w, "ready", ready); err != nil {
			return
		}
		_ = rc.Flush()

		ticker := time.NewTicker(s.config.GetSSEPingInterval())
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if err := events.WriteComment(w, "ping"); err != nil {
					log.Debug().Err(err).Msg("SSE ping failed")
					return
				}
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := events.WriteEvent(w, ev.Name, ev.Data); err != nil {
					log.Debug().Err(err).Msg("SSE write failed")
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
