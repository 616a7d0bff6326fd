package orchestrator

import "github.com/rs/zerolog"

// Event names published by the orchestrator.
const (
	EventPromptStep  = "prompt_step"
	EventDecodeStep  = "decode_step"
	EventGenerated   = "generated"
	EventInterrupted = "interrupted"
)

// Event represents a generation lifecycle event.
// Minimal and stable: name + session ID and optional fields via key/values.
type Event struct {
	Name      string
	SessionID string
	Fields    map[string]any
}

// EventPublisher receives events from the orchestrator. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes events to a zerolog logger at info level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	p.Logger.Info().Str("session", e.SessionID).Fields(e.Fields).Msg(e.Name)
}
