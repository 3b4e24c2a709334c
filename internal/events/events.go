// Package events provides the notification bus that stores use to tell
// subscribers about state changes.
package events

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the stores.
const (
	TopicSessionChanged = "session:changed"
	TopicLoggedOut      = "session:logout"
	TopicCartChanged    = "cart:changed"
)

// Bus delivers published values synchronously to every subscriber of a topic.
//
// Handlers run while the bus holds its lock, so a handler must never publish
// on the bus that invoked it. Each store owns its own Bus, which lets a
// session handler mutate the cart store (and vice versa) safely.
type Bus struct {
	bus evbus.Bus
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Subscribe registers fn for topic. fn must be a func whose parameters match
// the values published on that topic.
func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

// Publish delivers args to every handler of topic and returns once all have run.
func (b *Bus) Publish(topic string, args ...any) {
	b.bus.Publish(topic, args...)
}

