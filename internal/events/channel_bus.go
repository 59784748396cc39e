package events

import (
	"sync"
	"sync/atomic"

	"github.com/gxo-labs/goap/pkg/goap/v1/events"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
)

const defaultBufferSize = 100

// ChannelEventBus implements events.Bus over a buffered channel. Emit never
// blocks the planner: when the buffer is full the event is dropped and
// counted.
type ChannelEventBus struct {
	channel chan events.Event
	log     goaplog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewChannelEventBus creates a bus with the given buffer size, or 100 when
// bufferSize is not positive. It panics on a nil logger.
func NewChannelEventBus(bufferSize int, log goaplog.Logger) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}
	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit queues event for consumers. Events emitted after Close are dropped.
// Pooled planners emit concurrently, so Emit is safe for concurrent use.
func (c *ChannelEventBus) Emit(event events.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.channel <- event:
	default:
		c.dropped.Add(1)
		c.log.Warnf("Event channel buffer full, dropping event type '%s' (plan %s)", event.Type, event.PlanID)
	}
}

// GetChannel returns the receive side of the bus for in-process listeners.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *ChannelEventBus) Dropped() uint64 {
	return c.dropped.Load()
}

// Close closes the channel, ending listeners ranging over it. It is safe to
// call more than once.
func (c *ChannelEventBus) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.log.Debugf("Closing ChannelEventBus channel.")
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
