package notify

import (
	"log/slog"
	"sync"

	"github.com/aniladanir/webhook-inbox/internal/domain"
	"github.com/aniladanir/webhook-inbox/internal/metrics"
)

// Subscription receives events of one conversation until it is closed, either by the
// subscriber or by the hub when the subscriber falls behind.
type Subscription struct {
	hub            *Hub
	conversationID string
	events         chan domain.Event
	closeOnce      sync.Once
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan domain.Event {
	return s.events
}

func (s *Subscription) ConversationID() string {
	return s.conversationID
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub fans events out to the live subscribers of each conversation. Delivery is
// best effort: a subscriber whose buffer is full is dropped rather than waited on.
type Hub struct {
	logger *slog.Logger
	buffer int

	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	closed bool
}

func NewHub(logger *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		logger: logger,
		buffer: buffer,
		rooms:  make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(conversationID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, domain.ErrHubClosed
	}
	sub := &Subscription{
		hub:            h,
		conversationID: conversationID,
		events:         make(chan domain.Event, h.buffer),
	}
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Subscription]struct{})
	}
	h.rooms[conversationID][sub] = struct{}{}
	metrics.ActiveSubscribers.Inc()
	return sub, nil
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// remove must be called with h.mu held for writing.
func (h *Hub) remove(sub *Subscription) {
	if room := h.rooms[sub.conversationID]; room != nil {
		if _, ok := room[sub]; ok {
			delete(room, sub)
			metrics.ActiveSubscribers.Dec()
		}
		if len(room) == 0 {
			delete(h.rooms, sub.conversationID)
		}
	}
	sub.closeOnce.Do(func() { close(sub.events) })
}

// Publish delivers ev to every current subscriber of conversationID and returns the
// number of subscribers that received it.
func (h *Hub) Publish(conversationID string, ev domain.Event) int {
	var (
		delivered int
		slow      []*Subscription
	)

	h.mu.RLock()
	for sub := range h.rooms[conversationID] {
		select {
		case sub.events <- ev:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	metrics.EventsDelivered.WithLabelValues(string(ev.Type)).Add(float64(delivered))
	if len(slow) > 0 {
		h.mu.Lock()
		for _, sub := range slow {
			h.remove(sub)
		}
		h.mu.Unlock()
		metrics.SubscribersDropped.Add(float64(len(slow)))
		h.logger.Warn("dropped slow subscribers",
			slog.String("conversationId", conversationID),
			slog.Int("count", len(slow)))
	}
	return delivered
}

// Subscribers returns the number of live subscribers of conversationID.
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, room := range h.rooms {
		for sub := range room {
			h.remove(sub)
		}
	}
}
