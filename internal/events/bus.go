package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/pkg/logger"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 32

// Bus fans events out to channel subscribers.
// Slow subscribers lose events instead of blocking publishers.
type Bus struct {
	subscribers map[chan Event]map[EventType]bool // nil filter: every type
	mu          sync.RWMutex
	log         zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[chan Event]map[EventType]bool),
		log:         logger.Component(log, "event_bus"),
	}
}

// Subscribe registers a subscriber for the given types, or for every type
// when none are given.
func (b *Bus) Subscribe(types ...EventType) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	ch := make(chan Event, subscriberBuffer)
	b.subscribers[ch] = filter

	b.log.Debug().
		Int("total_subscribers", len(b.subscribers)).
		Msg("New subscriber added")

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)

	b.log.Debug().
		Int("total_subscribers", len(b.subscribers)).
		Msg("Subscriber removed")
}

// Publish delivers an event to every matching subscriber without blocking.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.subscribers {
		if filter != nil && !filter[event.Type] {
			continue
		}
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Subscriber channel full, dropping event")
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
