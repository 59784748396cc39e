package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intEvents "github.com/gxo-labs/goap/internal/events"
	"github.com/gxo-labs/goap/internal/logger"
	"github.com/gxo-labs/goap/pkg/goap/v1/events"
)

func TestChannelEventBus_EmitAndDrop(t *testing.T) {
	bus := intEvents.NewChannelEventBus(2, logger.NewNopLogger())

	bus.Emit(events.Event{Type: events.PlanStart, PlanID: "p1"})
	bus.Emit(events.Event{Type: events.PlanEnd, PlanID: "p1"})
	bus.Emit(events.Event{Type: events.PlanEnd, PlanID: "p2"})

	assert.Equal(t, uint64(1), bus.Dropped())
	first := <-bus.GetChannel()
	second := <-bus.GetChannel()
	assert.Equal(t, events.PlanStart, first.Type)
	assert.Equal(t, events.PlanEnd, second.Type)
	assert.Equal(t, "p1", second.PlanID)
}

func TestChannelEventBus_Close(t *testing.T) {
	bus := intEvents.NewChannelEventBus(0, logger.NewNopLogger())
	bus.Emit(events.Event{Type: events.PlanStart})
	bus.Close()
	bus.Close()

	// emitting after close must neither panic nor count as a drop
	bus.Emit(events.Event{Type: events.PlanEnd})
	assert.Zero(t, bus.Dropped())

	var got []events.EventType
	for e := range bus.GetChannel() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []events.EventType{events.PlanStart}, got)
}

func TestChannelEventBus_ConcurrentEmit(t *testing.T) {
	bus := intEvents.NewChannelEventBus(1000, logger.NewNopLogger())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Emit(events.Event{Type: events.GoalSelected})
			}
		}()
	}
	wg.Wait()
	bus.Close()

	count := 0
	for range bus.GetChannel() {
		count++
	}
	assert.Equal(t, 500, count)
}

func TestNewChannelEventBus_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { intEvents.NewChannelEventBus(1, nil) })
}

func TestNoOpEventBus(t *testing.T) {
	assert.NotPanics(t, func() {
		intEvents.NewNoOpEventBus().Emit(events.Event{Type: events.PlanStart})
	})
}

func TestMetricsEventListener(t *testing.T) {
	reg := prometheus.NewRegistry()
	rejected, err := intEvents.NewGoalsRejectedCounter(reg)
	require.NoError(t, err)
	again, err := intEvents.NewGoalsRejectedCounter(reg)
	require.NoError(t, err)
	assert.Same(t, rejected, again)

	failed, err := intEvents.NewSearchesFailedCounter(reg)
	require.NoError(t, err)
	failedAgain, err := intEvents.NewSearchesFailedCounter(reg)
	require.NoError(t, err)
	assert.Same(t, failed, failedAgain)
	bus := intEvents.NewChannelEventBus(10, logger.NewNopLogger())
	listener := intEvents.NewMetricsEventListener(bus, rejected, failed, logger.NewNopLogger())

	var mu sync.Mutex
	var seen []events.EventType
	listener.OnEvent(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	})

	done := make(chan struct{})
	go func() {
		listener.Start(context.Background())
		close(done)
	}()

	bus.Emit(events.Event{Type: events.GoalRejected, Payload: map[string]interface{}{"reason": "unreachable"}})
	bus.Emit(events.Event{Type: events.GoalRejected, Payload: map[string]interface{}{"reason": "unreachable"}})
	bus.Emit(events.Event{Type: events.GoalRejected})
	bus.Emit(events.Event{Type: events.AStarFailed})
	bus.Emit(events.Event{Type: events.PlanEnd})
	bus.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after the bus closed")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(rejected.WithLabelValues("unreachable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rejected.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(failed))
	mu.Lock()
	assert.Len(t, seen, 5)
	mu.Unlock()
}

func TestMetricsEventListener_StopsOnContext(t *testing.T) {
	reg := prometheus.NewRegistry()
	rejected, err := intEvents.NewGoalsRejectedCounter(reg)
	require.NoError(t, err)
	bus := intEvents.NewChannelEventBus(1, logger.NewNopLogger())
	listener := intEvents.NewMetricsEventListener(bus, rejected, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on cancellation")
	}
}
