// Package events fans server-side notifications out to open SSE connections.
// The subscriber set is process-local and lost on restart.
package events

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBuffer is the number of pending events a subscriber may lag behind
const DefaultBuffer = 16

// Event is one SSE frame
type Event struct {
	Name string
	Data []byte
}

// Subscriber receives broadcast events until it is removed from the hub
type Subscriber struct {
	ch chan Event
}

// Events is closed when the subscriber is removed
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Hub is safe for concurrent use
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.ch)
}

// Close removes every subscriber, ending their event streams
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subscribers {
		delete(h.subscribers, s)
		close(s.ch)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast encodes payload as JSON and offers it to every subscriber.
// Delivery is best effort: subscribers with a full buffer miss the event.
// Returns the number of subscribers that received it.
func (h *Hub) Broadcast(name string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("event", name).Msg("events: failed to encode payload")
		return 0
	}
	ev := Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subscribers {
		select {
		case s.ch <- ev:
			delivered++
		default:
			log.Debug().Str("event", name).Msg("events: subscriber lagging, event dropped")
		}
	}
	return delivered
}
