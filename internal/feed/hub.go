package feed

import (
	"context"
	"log"
	"sync"
)

const defaultBuffer = 64

// Subscription is a live change-feed registration. Events arrive on C until
// Cancel is called; Cancel is idempotent and must run on teardown so the hub
// does not leak listeners.
type Subscription struct {
	C chan Event

	hub            *Hub
	table          Table
	conversationID string
	once           sync.Once
}

// Cancel unregisters the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.C)
	})
}

// Hub fans events out to registered subscriptions. Delivery is non-blocking:
// a subscriber whose buffer is full misses the event, which is acceptable
// because consumers re-fetch rather than patch.
type Hub struct {
	mu   sync.RWMutex
	subs map[Table]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[Table]map[*Subscription]struct{}),
	}
}

// Subscribe registers for events on one table. A non-empty conversationID
// restricts delivery to events scoped to that conversation.
func (h *Hub) Subscribe(table Table, conversationID string) *Subscription {
	sub := &Subscription{
		C:              make(chan Event, defaultBuffer),
		hub:            h,
		table:          table,
		conversationID: conversationID,
	}

	h.mu.Lock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[*Subscription]struct{})
	}
	h.subs[table][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers the event to every matching subscription.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.Table] {
		if sub.conversationID != "" && sub.conversationID != event.ConversationID {
			continue
		}
		select {
		case sub.C <- event:
		default:
			log.Printf("feed: dropping %s/%s event for slow subscriber", event.Table, event.Op)
		}
	}
	return nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.table]; ok {
		delete(subs, sub)
	}
}

// SubscriberCount reports how many subscriptions are registered for a table.
func (h *Hub) SubscriberCount(table Table) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
