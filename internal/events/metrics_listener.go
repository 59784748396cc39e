package events

import (
	"context"

	"github.com/gxo-labs/goap/pkg/goap/v1/events"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsEventListener consumes a ChannelEventBus and turns planner events
// into Prometheus metrics: rejected goals by reason and failed searches.
// Optional handlers see every event after the metrics are updated.
type MetricsEventListener struct {
	bus            *ChannelEventBus
	log            goaplog.Logger
	goalsRejected  *prometheus.CounterVec
	searchesFailed prometheus.Counter
	handlers       []func(events.Event)
}

// NewMetricsEventListener creates a listener. It panics when a dependency is
// nil; searchesFailed may be nil.
func NewMetricsEventListener(bus *ChannelEventBus, goalsRejected *prometheus.CounterVec, searchesFailed prometheus.Counter, log goaplog.Logger) *MetricsEventListener {
	if bus == nil || goalsRejected == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, goals rejected counter, and Logger")
	}
	return &MetricsEventListener{
		bus:            bus,
		log:            log.With("component", "MetricsEventListener"),
		goalsRejected:  goalsRejected,
		searchesFailed: searchesFailed,
	}
}

// NewGoalsRejectedCounter creates the goap_goals_rejected_total counter
// partitioned by rejection reason and registers it on reg, reusing an
// already registered one.
func NewGoalsRejectedCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goap_goals_rejected_total",
		Help: "Goals dropped during planning, partitioned by reason.",
	}, []string{"reason"})
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// NewSearchesFailedCounter creates the goap_astar_failed_total counter and
// registers it on reg, reusing an already registered one.
func NewSearchesFailedCounter(reg prometheus.Registerer) (prometheus.Counter, error) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goap_astar_failed_total",
		Help: "A* searches that ended without a plan.",
	})
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// OnEvent adds a handler called for every event. Handlers must be added
// before Start.
func (l *MetricsEventListener) OnEvent(handler func(events.Event)) {
	l.handlers = append(l.handlers, handler)
}

// Start consumes events until the bus is closed or ctx is done. It blocks;
// run it in its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.GoalRejected:
		reason, _ := event.Payload["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		l.goalsRejected.WithLabelValues(reason).Inc()
	case events.AStarFailed:
		if l.searchesFailed != nil {
			l.searchesFailed.Inc()
		}
	}
	for _, handler := range l.handlers {
		handler(event)
	}
}
