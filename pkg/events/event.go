package events

import "time"

// Wire codes of the events a session pipeline broadcasts.
const (
	TypeInteraction  = "BEHAVIORAL_INTERACTION"
	TypeStateChanged = "EMOTIONAL_STATE_CHANGED"
	TypeAdaptation   = "EMOTIONAL_ADAPTATION"
	TypePreferences  = "PREFERENCES_APPLIED"
)

// Event defines the contract for everything that leaves a session pipeline.
type Event interface {
	// EventType returns the unique code for this event (e.g., "EMOTIONAL_STATE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the untyped form used once an event has crossed a process boundary.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Message is the JSON form of an event on internal queues and websocket frames.
type Message struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewMessage(e Event) Message {
	return Message{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()}
}

func (m Message) Event() BaseEvent {
	return BaseEvent{Type: m.Type, Data: m.Data, OccurredAt: m.OccurredAt}
}
