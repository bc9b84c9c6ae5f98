package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit publishes typed data on the bus and logs it
func (m *Manager) Emit(module string, data EventData) {
	event := Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	m.bus.Publish(event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		m.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to encode event for logging")
		return
	}
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}
