// Package realtime delivers chat and match events to connected clients over
// websockets.
//
// Events are addressed to topics: "conversation:<id>" for messages in a
// conversation and "user:<id>" for per-user notifications such as new
// matches. A Hub routes payloads to the subscribers of a topic inside one
// process; a Publisher decides how events reach the hubs (directly, or via
// Redis pub/sub when several API instances run side by side).
package realtime

import (
	"sync"
)

// Subscriber is anything the hub can deliver payloads to.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
}

// Hub coordinates subscribers and topics. It is safe for concurrent use.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[string]Subscriber // topic -> subscriberID -> subscriber
	subscribed map[string]map[string]struct{}   // subscriberID -> set of topics
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[string]Subscriber),
		subscribed: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds s to topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(topic string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.topics[topic]
	if room == nil {
		room = make(map[string]Subscriber)
		h.topics[topic] = room
	}
	room[s.ID()] = s

	set := h.subscribed[s.ID()]
	if set == nil {
		set = make(map[string]struct{})
		h.subscribed[s.ID()] = set
	}
	set[topic] = struct{}{}
}

// Unsubscribe removes s from topic.
func (h *Hub) Unsubscribe(topic string, s Subscriber) {
	h.mu.Lock()
	h.leaveLocked(topic, s.ID())
	h.mu.Unlock()
}

// Detach removes s from every topic it joined.
func (h *Hub) Detach(s Subscriber) {
	h.mu.Lock()
	for topic := range h.subscribed[s.ID()] {
		h.leaveLocked(topic, s.ID())
	}
	delete(h.subscribed, s.ID())
	h.mu.Unlock()
}

// Broadcast delivers payload to every subscriber of topic and returns how
// many accepted it.
func (h *Hub) Broadcast(topic string, payload []byte) int {
	h.mu.RLock()
	room := h.topics[topic]
	targets := make([]Subscriber, 0, len(room))
	for _, s := range room {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	// Send may close a slow connection, so deliver outside the lock.
	delivered := 0
	for _, s := range targets {
		if err := s.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Topics returns the topics s is subscribed to.
func (h *Hub) Topics(s Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subscribed[s.ID()]))
	for t := range h.subscribed[s.ID()] {
		out = append(out, t)
	}
	return out
}

func (h *Hub) leaveLocked(topic, id string) {
	room := h.topics[topic]
	if room != nil {
		delete(room, id)
		if len(room) == 0 {
			delete(h.topics, topic)
		}
	}
	if set, ok := h.subscribed[id]; ok {
		delete(set, topic)
		if len(set) == 0 {
			delete(h.subscribed, id)
		}
	}
}
