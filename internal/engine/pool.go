package engine

import (
	"context"
	"time"

	"github.com/gxo-labs/goap/internal/retry"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"

	intMetrics "github.com/gxo-labs/goap/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of planning one agent in a Pool.
type Result[K comparable, V comparable] struct {
	Agent goapv1.Agent[K, V]
	// Goal is the goal that received a plan, or nil.
	Goal  goapv1.Goal[K, V]
	Stats goapv1.PlanStats
	// DebugGraph is the search graph of the last search when DebugPlan is on.
	DebugGraph string
	// Err is a NoPlanError when no goal could be planned, or the context
	// error when planning was cancelled before the agent was reached.
	Err error
}

// Pool plans many agents concurrently. Planners are not safe for concurrent
// use, so the pool owns one per worker and hands them out through a channel.
type Pool[K comparable, V comparable] struct {
	planners chan *Planner[K, V]
	workers  int
	log      goaplog.Logger
	retry    *retry.Helper
	active   prometheus.Gauge
}

// NewPool creates a pool of workers planners built with opts. All planners
// share one metrics registry, created here unless opts provide one.
func NewPool[K comparable, V comparable](workers int, log goaplog.Logger, opts ...goapv1.PlannerOption) (*Pool[K, V], error) {
	if workers <= 0 {
		return nil, goaperrors.NewConfigError("pool needs at least one worker", nil)
	}
	if log == nil {
		return nil, goaperrors.NewConfigError("logger cannot be nil", nil)
	}
	shared := append([]goapv1.PlannerOption{
		goapv1.WithMetricsRegistryProvider(intMetrics.NewPrometheusRegistryProvider()),
	}, opts...)

	p := &Pool[K, V]{
		planners: make(chan *Planner[K, V], workers),
		workers:  workers,
		log:      log.With("component", "PlannerPool"),
		retry:    retry.NewHelper(log),
	}
	for i := 0; i < workers; i++ {
		planner, err := NewPlanner[K, V](log.With("worker", i), shared...)
		if err != nil {
			return nil, err
		}
		if p.active == nil {
			p.active = register(planner.metricsProvider.Registry(), log, prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "goap_pool_active_workers",
				Help: "Planners of the pool currently running a Plan call.",
			}))
		}
		p.planners <- planner
	}
	return p, nil
}

// Workers returns the number of planners in the pool.
func (p *Pool[K, V]) Workers() int {
	return p.workers
}

// acquire waits for an idle planner.
func (p *Pool[K, V]) acquire(ctx context.Context) (*Planner[K, V], error) {
	select {
	case planner := <-p.planners:
		p.active.Inc()
		return planner, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool[K, V]) release(planner *Planner[K, V]) {
	planner.Reset()
	p.active.Dec()
	p.planners <- planner
}

// plan runs one Plan call on an idle planner.
func (p *Pool[K, V]) plan(ctx context.Context, agent goapv1.Agent[K, V], blacklistGoal goapv1.Goal[K, V], currentPlan goapv1.Plan[K, V]) Result[K, V] {
	res := Result[K, V]{Agent: agent}
	planner, err := p.acquire(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	defer p.release(planner)

	res.Goal = planner.PlanContext(ctx, agent, blacklistGoal, currentPlan, nil)
	res.Stats = planner.LastStats()
	res.DebugGraph = planner.DebugGraph()
	if res.Goal == nil {
		res.Err = goaperrors.NewNoPlanError(agent.Name())
	}
	return res
}

// PlanAll plans every agent, at most Workers at a time, and returns one
// Result per agent in input order. A missing plan is reported in the
// agent's Result, not as an error; the returned error is only set when ctx
// ends before all agents were planned.
func (p *Pool[K, V]) PlanAll(ctx context.Context, agents []goapv1.Agent[K, V]) ([]Result[K, V], error) {
	return p.each(ctx, agents, func(ctx context.Context, agent goapv1.Agent[K, V]) Result[K, V] {
		return p.plan(ctx, agent, nil, nil)
	})
}

// PlanAllWithRetry is PlanAll with PlanWithRetry applied to every agent.
func (p *Pool[K, V]) PlanAllWithRetry(ctx context.Context, agents []goapv1.Agent[K, V], cfg retry.Config) ([]Result[K, V], error) {
	return p.each(ctx, agents, func(ctx context.Context, agent goapv1.Agent[K, V]) Result[K, V] {
		return p.PlanWithRetry(ctx, agent, cfg)
	})
}

func (p *Pool[K, V]) each(ctx context.Context, agents []goapv1.Agent[K, V], planOne func(context.Context, goapv1.Agent[K, V]) Result[K, V]) ([]Result[K, V], error) {
	results := make([]Result[K, V], len(agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, agent := range agents {
		g.Go(func() error {
			results[i] = planOne(gctx, agent)
			if err := results[i].Err; err != nil && !goaperrors.IsNoPlan(err) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		p.log.Warnf("Pool planning stopped early: %v", err)
	}
	return results, err
}

// PlanWithRetry plans agent, retrying while no goal can be planned. When
// cfg.Delay is zero the largest ErrorDelay among the agent's goals is used
// between attempts. Only NoPlanError is retried.
func (p *Pool[K, V]) PlanWithRetry(ctx context.Context, agent goapv1.Agent[K, V], cfg retry.Config) Result[K, V] {
	if cfg.Delay == 0 {
		cfg.Delay = maxErrorDelay(agent)
	}
	cfg.OnError = true
	cfg.Retryable = goaperrors.IsNoPlan
	if cfg.TaskName == "" {
		cfg.TaskName = agent.Name()
	}

	var res Result[K, V]
	err := p.retry.Do(ctx, cfg, func(ctx context.Context) error {
		res = p.plan(ctx, agent, nil, nil)
		return res.Err
	})
	res.Agent = agent
	res.Err = err
	return res
}

func maxErrorDelay[K comparable, V comparable](agent goapv1.Agent[K, V]) time.Duration {
	var delay time.Duration
	for _, goal := range agent.Goals() {
		delay = max(delay, goal.ErrorDelay())
	}
	return delay
}
