// Package events fans out per-user lifecycle notifications to live
// subscribers.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one notification delivered to a user
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub routes events to the subscriptions of their user. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives the events of one user until closed
type Subscription struct {
	hub    *Hub
	userID string
	ch     chan Event
	once   sync.Once
}

// Events returns the delivery channel; it is closed by Close
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the hub
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers a new subscription for userID
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		ch:     make(chan Event, h.buffer),
	}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	slog.Debug("event subscriber added", "user_id", userID)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	close(sub.ch)
}

// Publish delivers an event to every subscription of userID
func (h *Hub) Publish(userID, eventType string, payload any) {
	evt := Event{
		Type:       eventType,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.ch <- evt:
		default:
			h.dropped.Add(1)
			slog.Warn("event dropped for slow subscriber", "user_id", userID, "type", eventType)
		}
	}
}

// Subscribers returns the number of live subscriptions for userID
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Dropped returns how many events were discarded for full buffers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
