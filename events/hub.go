// Package events fans calendar mutation events out to in-process
// subscribers (websocket sessions, debug loggers, tests).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// EVENT HUB - Lifecycle-scoped fan-out
// =============================================================================

// Event is one delivered mutation record.
type Event struct {
	ID   string             `json:"id"`
	Kind calendar.EventKind `json:"kind"`
	At   time.Time          `json:"at"`

	// Exactly one of Item/Notification is set, depending on Kind.
	Item         *calendar.Item         `json:"item,omitempty"`
	Notification *calendar.Notification `json:"notification,omitempty"`
}

const EventNotification calendar.EventKind = "NOTIFICATION"

// Hub owns its subscriber set for the lifetime of one server instance.
// There is no package-level registry: construct a Hub, wire it, Close it on
// shutdown. Delivery is non-blocking; a subscriber that cannot keep up has
// events dropped rather than stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	closed bool
	log    *logrus.Logger
	buffer int
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]chan Event),
		log:    log,
		buffer: 16,
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() (string, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Close drops and closes every subscriber. Further publishes are no-ops and
// further Subscribes get an already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// ItemEvent implements calendar.EventPublisher.
func (h *Hub) ItemEvent(kind calendar.EventKind, item calendar.Item) {
	h.publish(Event{
		ID:   uuid.NewString(),
		Kind: kind,
		At:   time.Now().UTC(),
		Item: &item,
	})
}

// NotificationCreated implements calendar.EventPublisher.
func (h *Hub) NotificationCreated(n calendar.Notification) {
	h.publish(Event{
		ID:           uuid.NewString(),
		Kind:         EventNotification,
		At:           time.Now().UTC(),
		Notification: &n,
	})
}

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.WithFields(logrus.Fields{
				"subscriber": id,
				"kind":       ev.Kind,
			}).Debug("slow subscriber, event dropped")
		}
	}
}
