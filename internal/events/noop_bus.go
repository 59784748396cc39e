package events

import "github.com/gxo-labs/goap/pkg/goap/v1/events"

// NoOpEventBus discards every event. Planners fall back to it when no bus is
// configured so emission sites never need a nil check.
type NoOpEventBus struct{}

// NewNoOpEventBus returns a bus that ignores events.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit does nothing.
func (n *NoOpEventBus) Emit(event events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
