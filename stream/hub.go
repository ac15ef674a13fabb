package stream

import (
	"sync"

	"boardsync/domain"
)

const subscriptionBuffer = 16

// Hub fans committed change events out to connected session channels. Every
// subscription is tagged with the organization resolved at connect time and
// only receives events for that organization. Delivery is best-effort,
// at-most-once: a subscriber whose buffer is full misses the event and
// catches up on its next snapshot fetch.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is a connection-scoped event channel with an explicit
// lifecycle. Close it when the connection goes away.
type Subscription struct {
	hub   *Hub
	orgID string
	ch    chan domain.ChangeEvent

	once sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new channel scoped to the given organization.
func (h *Hub) Subscribe(orgID string) *Subscription {
	s := &Subscription{hub: h, orgID: orgID, ch: make(chan domain.ChangeEvent, subscriptionBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers the event to every subscription of the event's
// organization without blocking the caller.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	h.mu.Lock()
	for s := range h.subs {
		if s.orgID != ev.OrganizationID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Events returns the channel events are delivered on. It is closed by Close.
func (s *Subscription) Events() <-chan domain.ChangeEvent {
	return s.ch
}

// Close removes the subscription from the hub and closes its channel. It is
// safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
