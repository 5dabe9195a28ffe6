package auth

import (
	"sync"

	"github.com/educhat/backend/internal/model/auth"
)

const subscriberBuffer = 8

// Hub fans auth state changes out to per-user subscribers. Delivery is
// best effort: a full subscriber buffer drops the event.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan auth.Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan auth.Event)}
}

// Subscribe returns a channel of events for userID and a func that
// unsubscribes and closes it.
func (h *Hub) Subscribe(userID string) (<-chan auth.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan auth.Event, subscriberBuffer)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan auth.Event)
	}
	h.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber of event.UserID.
func (h *Hub) Publish(event auth.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}
}
