package engine

import (
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/gxo-labs/goap/pkg/goap/v1/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// plannerMetrics holds the collectors a planner updates after every Plan
// call. Planners sharing a registry (a Pool) share the collectors.
type plannerMetrics struct {
	planRuns       *prometheus.CounterVec
	planDuration   prometheus.Histogram
	astarRuns      *prometheus.CounterVec
	astarIteration prometheus.Histogram
	nodesCreated   prometheus.Counter
}

func newPlannerMetrics(provider metrics.RegistryProvider, log goaplog.Logger) *plannerMetrics {
	reg := provider.Registry()
	m := &plannerMetrics{
		planRuns: register(reg, log, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goap_plan_runs_total",
			Help: "Plan calls, partitioned by final status.",
		}, []string{"status"})),
		planDuration: register(reg, log, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goap_plan_duration_seconds",
			Help:    "Wall time of Plan calls.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		})),
		astarRuns: register(reg, log, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goap_astar_runs_total",
			Help: "A* searches, partitioned by result.",
		}, []string{"result"})),
		astarIteration: register(reg, log, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goap_astar_iterations",
			Help:    "Children examined per A* search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		})),
		nodesCreated: register(reg, log, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goap_nodes_created_total",
			Help: "Search nodes obtained from node arenas.",
		})),
	}
	return m
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, log goaplog.Logger, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		log.Warnf("Failed to register planner metric: %v", err)
	}
	return c
}

func (m *plannerMetrics) observePlan(status goapv1.Status, stats goapv1.PlanStats) {
	m.planRuns.WithLabelValues(status.String()).Inc()
	m.planDuration.Observe(stats.Duration.Seconds())
	m.nodesCreated.Add(float64(stats.NodesCreated))
}

func (m *plannerMetrics) observeSearch(found bool, iterations int) {
	result := "failed"
	if found {
		result = "found"
	}
	m.astarRuns.WithLabelValues(result).Inc()
	m.astarIteration.Observe(float64(iterations))
}
