// Package events fans generation lifecycle events out to websocket clients.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before events are dropped for it
const subscriberBuffer = 32

// Event is one message sent to subscribers
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   int64           `json:"at"`
}

// Subscriber receives events on C until it is unsubscribed
type Subscriber struct {
	C       <-chan Event
	ch      chan Event
	dropped atomic.Int64
}

// Dropped returns how many events were skipped because the subscriber was full
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub manages event subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscriber{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}

// Count returns the number of subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish sends an event to every subscriber. It never blocks: a subscriber
// whose buffer is full misses the event.
func (h *Hub) Publish(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	ev := Event{Type: eventType, Data: payload, At: time.Now().UnixMilli()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			h.logger.Debug("event dropped for slow subscriber", "type", eventType)
		}
	}
}

// Close unsubscribes everyone, ending their streams
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}
