package progress

import (
	"log/slog"
	"sync"

	"mediaflow/internal/logging"
	"mediaflow/internal/metrics"
)

// Subscriber receives events. Deliver must not block; returning false tells
// the hub the subscriber cannot keep up and should be dropped.
type Subscriber interface {
	Deliver(Event) bool
}

// Hub is a topic-keyed pub/sub fan-out.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
	subs   map[Subscriber]map[string]struct{}
	logger *slog.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[Subscriber]struct{}),
		subs:   make(map[Subscriber]map[string]struct{}),
		logger: logging.NewComponentLogger(logger, "broadcast"),
	}
}

// Subscribe adds sub to topic. Repeated calls are no-ops.
func (h *Hub) Subscribe(sub Subscriber, topic string) {
	if h == nil || sub == nil || topic == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.topics[topic]
	if !ok {
		members = make(map[Subscriber]struct{})
		h.topics[topic] = members
	}
	members[sub] = struct{}{}

	owned, ok := h.subs[sub]
	if !ok {
		owned = make(map[string]struct{})
		h.subs[sub] = owned
	}
	owned[topic] = struct{}{}
}

// Unsubscribe removes sub from topic. Unknown pairs are ignored.
func (h *Hub) Unsubscribe(sub Subscriber, topic string) {
	if h == nil || sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, topic)
}

// UnsubscribeAll removes sub from every topic, typically on disconnect.
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	if h == nil || sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.subs[sub] {
		h.removeLocked(sub, topic)
	}
}

func (h *Hub) removeLocked(sub Subscriber, topic string) {
	if members, ok := h.topics[topic]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	if owned, ok := h.subs[sub]; ok {
		delete(owned, topic)
		if len(owned) == 0 {
			delete(h.subs, sub)
		}
	}
}

// Publish delivers evt to every current subscriber of topic and returns the
// number that accepted it. Subscribers that refuse are dropped.
func (h *Hub) Publish(topic string, evt Event) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	members := h.topics[topic]
	targets := make([]Subscriber, 0, len(members))
	for sub := range members {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	var slow []Subscriber
	for _, sub := range targets {
		if sub.Deliver(evt) {
			delivered++
			continue
		}
		slow = append(slow, sub)
	}

	for _, sub := range slow {
		h.UnsubscribeAll(sub)
		metrics.BroadcastDropped.Inc()
		h.logger.Debug("dropped slow subscriber",
			logging.String("topic", topic),
			logging.String(logging.FieldItemID, evt.ID),
		)
	}
	return delivered
}

// PublishAll sends evt to each topic in turn. A subscriber on several of the
// topics receives the event once per topic.
func (h *Hub) PublishAll(topics []string, evt Event) int {
	if h == nil {
		return 0
	}
	metrics.BroadcastEvents.WithLabelValues(string(evt.Type)).Inc()
	total := 0
	for _, topic := range topics {
		total += h.Publish(topic, evt)
	}
	return total
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Connections returns the number of distinct subscribers across all topics.
func (h *Hub) Connections() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
