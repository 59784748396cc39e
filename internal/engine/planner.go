package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/events"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/gxo-labs/goap/pkg/goap/v1/metrics"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
	goaptracing "github.com/gxo-labs/goap/pkg/goap/v1/tracing"

	intEvents "github.com/gxo-labs/goap/internal/events"
	intMetrics "github.com/gxo-labs/goap/internal/metrics"
	intTracing "github.com/gxo-labs/goap/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	codes "go.opentelemetry.io/otel/codes"
)

const tracerName = "goap-planner"

// Goal rejection reasons reported in GoalRejected events.
const (
	RejectUnreachable = "unreachable"
	RejectSamePlan    = "same_plan"
	RejectEmptyPlan   = "empty_plan"
)

// Planner selects a goal for an agent and computes its plan. A Planner owns
// its state and node arenas, so one instance must not run two Plan calls at
// once; use a Pool to plan several agents concurrently. Status accessors are
// safe to poll from other goroutines.
type Planner[K comparable, V comparable] struct {
	settings        goapv1.Settings
	log             goaplog.Logger
	eventBus        events.Bus
	metricsProvider metrics.RegistryProvider
	tracerProvider  goaptracing.TracerProvider
	metrics         *plannerMetrics

	states *state.Arena[K, V]
	nodes  *NodeArena[K, V]
	astar  *AStar[K, V]
	search *searchContext[K, V]

	calculated atomic.Bool
	status     atomic.Int32

	mu           sync.RWMutex
	currentGoal  goapv1.Goal[K, V]
	currentAgent goapv1.Agent[K, V]
	lastStats    goapv1.PlanStats
	debugGraph   string
}

var (
	_ goapv1.PlannerV1[string, any] = (*Planner[string, any])(nil)
	_ goapv1.Configurable           = (*Planner[string, any])(nil)
)

// NewPlanner creates a planner. Without options it uses DefaultSettings, a
// no-op event bus and tracer, and a private Prometheus registry.
func NewPlanner[K comparable, V comparable](log goaplog.Logger, opts ...goapv1.PlannerOption) (*Planner[K, V], error) {
	if log == nil {
		return nil, goaperrors.NewConfigError("logger cannot be nil", nil)
	}
	p := &Planner[K, V]{
		settings: goapv1.DefaultSettings(),
		log:      log,
	}
	p.calculated.Store(true)

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, goaperrors.NewConfigError(fmt.Sprintf("failed to apply planner option: %v", err), err)
		}
	}

	if p.eventBus == nil {
		p.log.Debugf("No event bus provided, using default NoOp bus.")
		p.eventBus = intEvents.NewNoOpEventBus()
	}
	if p.metricsProvider == nil {
		p.log.Debugf("No metrics provider provided, using default Prometheus provider.")
		p.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	if p.tracerProvider == nil {
		tp, err := intTracing.NewNoOpProvider()
		if err != nil {
			return nil, goaperrors.NewConfigError("failed to create default NoOp tracer provider", err)
		}
		p.tracerProvider = tp
	}

	p.metrics = newPlannerMetrics(p.metricsProvider, p.log)
	p.resetSearch()
	return p, nil
}

// resetSearch sizes the arenas and frontier for the current settings.
func (p *Planner[K, V]) resetSearch() {
	p.states = state.NewArena[K, V](p.settings.MaxNodesToExpand)
	p.nodes = NewNodeArena[K, V](p.settings.MaxNodesToExpand)
	p.astar = NewAStar[K, V](p.settings.MaxNodesToExpand, p.settings.ExploredKeying, p.log)
	p.search = &searchContext[K, V]{
		states:              p.states,
		nodes:               p.nodes,
		heuristicMultiplier: p.settings.HeuristicMultiplier,
	}
}

// --- Configurable ---

func (p *Planner[K, V]) SetSettings(settings goapv1.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if p.IsPlanning() {
		return goaperrors.NewConfigError("cannot change settings while planning", nil)
	}
	p.settings = settings
	if p.astar != nil {
		p.resetSearch()
	}
	return nil
}

func (p *Planner[K, V]) SetLogger(logger goaplog.Logger) error {
	p.log = logger
	return nil
}

func (p *Planner[K, V]) SetEventBus(bus events.Bus) error {
	p.eventBus = bus
	return nil
}

func (p *Planner[K, V]) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	p.metricsProvider = provider
	return nil
}

func (p *Planner[K, V]) SetTracerProvider(provider goaptracing.TracerProvider) error {
	p.tracerProvider = provider
	return nil
}

// --- PlannerV1 ---

func (p *Planner[K, V]) Plan(agent goapv1.Agent[K, V], blacklistGoal goapv1.Goal[K, V], currentPlan goapv1.Plan[K, V], callback func(goapv1.Goal[K, V])) goapv1.Goal[K, V] {
	return p.PlanContext(context.Background(), agent, blacklistGoal, currentPlan, callback)
}

func (p *Planner[K, V]) PlanContext(ctx context.Context, agent goapv1.Agent[K, V], blacklistGoal goapv1.Goal[K, V], currentPlan goapv1.Plan[K, V], callback func(goapv1.Goal[K, V])) goapv1.Goal[K, V] {
	tracer := p.tracerProvider.GetTracer(tracerName)
	planCtx, span := tracer.Start(ctx, "goap.plan")
	defer span.End()

	startTime := time.Now()
	planID := uuid.NewString()
	log := p.log.With("agent", agent.Name(), "plan_id", planID)
	log.Debugf("[Planner] Starting planning calculation for agent: %s", agent.Name())

	p.calculated.Store(false)
	p.status.Store(int32(goapv1.StatusPlanning))
	p.mu.Lock()
	p.currentAgent = agent
	p.currentGoal = nil
	p.mu.Unlock()

	p.eventBus.Emit(events.Event{Type: events.PlanStart, Timestamp: startTime, PlanID: planID, AgentName: agent.Name()})

	stats := goapv1.PlanStats{PlanID: planID, Agent: agent.Name()}
	createdBefore := p.nodes.Created()

	world := p.states.Clone(agent.WorldState())
	p.search.agent = agent
	p.search.world = world

	var possibleGoals []goapv1.Goal[K, V]
	for _, goal := range agent.Goals() {
		if blacklistGoal != nil && goal == blacklistGoal {
			continue
		}
		goal.Precalculations(agent)
		if goal.IsGoalPossible() {
			possibleGoals = append(possibleGoals, goal)
		}
	}
	sort.SliceStable(possibleGoals, func(i, j int) bool {
		return possibleGoals[i].Priority() < possibleGoals[j].Priority()
	})
	stats.GoalsConsidered = len(possibleGoals)

	var chosen goapv1.Goal[K, V]
	debugGraph := ""
	for len(possibleGoals) > 0 {
		if err := planCtx.Err(); err != nil {
			log.Debugf("[Planner] Planning interrupted between goals: %v", err)
			break
		}
		candidate := possibleGoals[len(possibleGoals)-1]
		possibleGoals = possibleGoals[:len(possibleGoals)-1]

		// the pre-check assumes an action's effects do not depend on where in
		// the plan it is used
		if !p.settings.UsingDynamicActions && !p.reachable(agent, candidate, world) {
			stats.GoalsPrechecked++
			p.rejectGoal(planID, agent, candidate, RejectUnreachable)
			continue
		}

		plan, found := p.runSearch(planCtx, planID, agent, candidate, &stats)
		if p.settings.DebugPlan && !p.astar.Debugger().Empty() {
			debugGraph = p.astar.Debugger().DOT()
		}
		if !found {
			continue
		}
		if currentPlan != nil && plan.Equal(currentPlan) {
			p.rejectGoal(planID, agent, candidate, RejectSamePlan)
			continue
		}
		if len(plan) == 0 {
			p.rejectGoal(planID, agent, candidate, RejectEmptyPlan)
			continue
		}
		candidate.SetPlan(plan)
		chosen = candidate
		p.eventBus.Emit(events.Event{
			Type:      events.GoalSelected,
			Timestamp: time.Now(),
			PlanID:    planID,
			AgentName: agent.Name(),
			GoalName:  candidate.Name(),
			Payload:   map[string]interface{}{"actions": plan.Names(), "priority": candidate.Priority()},
		})
		break
	}

	p.astar.ClearNodes()
	world.Recycle()
	p.search.world = state.State[K, V]{}

	stats.NodesCreated = p.nodes.Created() - createdBefore
	stats.Duration = time.Since(startTime)
	status := goapv1.StatusFailed
	if chosen != nil {
		status = goapv1.StatusSucceeded
		stats.Goal = chosen.Name()
	}

	p.mu.Lock()
	p.currentGoal = chosen
	p.lastStats = stats
	p.debugGraph = debugGraph
	p.mu.Unlock()
	p.status.Store(int32(status))
	p.calculated.Store(true)

	if callback != nil {
		callback(chosen)
	}

	if chosen != nil {
		log.Debugf("[Planner] Calculated plan for goal '%s', plan length: %d", chosen.Name(), len(chosen.Plan()))
		if log.IsEnabled(slog.LevelDebug) {
			p.logPlan(log, agent, chosen)
		}
	} else {
		log.Warnf("[Planner] No plan could be calculated for agent '%s'.", agent.Name())
	}

	p.metrics.observePlan(status, stats)
	span.SetAttributes(intTracing.StatsAttributes(stats)...)
	span.SetAttributes(attribute.String("goap.plan.status", status.String()))
	if err := planCtx.Err(); err != nil {
		intTracing.RecordErrorWithContext(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	p.eventBus.Emit(events.Event{
		Type:      events.PlanEnd,
		Timestamp: time.Now(),
		PlanID:    planID,
		AgentName: agent.Name(),
		GoalName:  stats.Goal,
		Payload: map[string]interface{}{
			"status":      status.String(),
			"astar_runs":  stats.AStarRuns,
			"iterations":  stats.Iterations,
			"duration_ms": stats.Duration.Milliseconds(),
		},
	})
	return chosen
}

// reachable folds the effects of every usable action, under every settings
// variant, out of the goal and checks the remainder against the world. It
// ignores ordering and preconditions, so it can only prove a goal
// unreachable, never reachable.
func (p *Planner[K, V]) reachable(agent goapv1.Agent[K, V], goal goapv1.Goal[K, V], world state.State[K, V]) bool {
	wanted := p.states.Clone(goal.GoalState())
	ctx := goapv1.ActionContext[K, V]{
		Agent:        agent,
		CurrentState: world,
		GoalState:    wanted,
	}
	for _, action := range agent.Actions() {
		ctx.Settings = state.State[K, V]{}
		action.Precalculations(ctx)
		if !action.CheckProceduralCondition(ctx) {
			continue
		}
		for _, settings := range settingsVariants(action, ctx) {
			ctx.Settings = settings
			next := p.states.Get()
			wanted.MissingDifferenceWith(action.Effects(ctx), state.Diff[K, V]{Into: next})
			wanted.Recycle()
			wanted = next
			ctx.GoalState = wanted
		}
	}
	remaining := wanted.MissingDifference(world)
	wanted.Recycle()
	return remaining == 0
}

// runSearch runs A* for one goal and extracts the plan.
func (p *Planner[K, V]) runSearch(ctx context.Context, planID string, agent goapv1.Agent[K, V], candidate goapv1.Goal[K, V], stats *goapv1.PlanStats) (goapv1.Plan[K, V], bool) {
	_, span := p.tracerProvider.GetTracer(tracerName).Start(ctx, "goap.astar.run")
	defer span.End()

	goal := p.states.Clone(candidate.GoalState())
	root := newNode(p.search, goal, nil, nil, state.State[K, V]{})
	leaf := p.astar.Run(root, p.settings.MaxIterations, p.settings.PlanningEarlyExit, true, p.settings.DebugPlan)

	iterations := p.astar.Iterations()
	stats.AStarRuns++
	stats.Iterations += iterations
	span.SetAttributes(
		attribute.String("goap.goal.name", candidate.Name()),
		attribute.Int("goap.astar.iterations", iterations),
		attribute.Bool("goap.astar.found", leaf != nil),
	)
	p.metrics.observeSearch(leaf != nil, iterations)

	if leaf == nil {
		span.SetStatus(codes.Error, "no plan found")
		p.eventBus.Emit(events.Event{
			Type:      events.AStarFailed,
			Timestamp: time.Now(),
			PlanID:    planID,
			AgentName: agent.Name(),
			GoalName:  candidate.Name(),
			Payload:   map[string]interface{}{"iterations": iterations},
		})
		return nil, false
	}
	span.SetStatus(codes.Ok, "")
	return leaf.CalculatePath(), true
}

func (p *Planner[K, V]) rejectGoal(planID string, agent goapv1.Agent[K, V], goal goapv1.Goal[K, V], reason string) {
	p.log.Debugf("[Planner] Goal '%s' rejected: %s", goal.Name(), reason)
	p.eventBus.Emit(events.Event{
		Type:      events.GoalRejected,
		Timestamp: time.Now(),
		PlanID:    planID,
		AgentName: agent.Name(),
		GoalName:  goal.Name(),
		Payload:   map[string]interface{}{"reason": reason},
	})
}

func (p *Planner[K, V]) logPlan(log goaplog.Logger, agent goapv1.Agent[K, V], goal goapv1.Goal[K, V]) {
	ctx := goapv1.ActionContext[K, V]{Agent: agent, GoalState: goal.GoalState()}
	for i, step := range goal.Plan() {
		ctx.Settings = step.Settings
		log.Debugf("[Planner] %d) %s", i, step.Action.Describe(ctx))
	}
}

func (p *Planner[K, V]) IsPlanning() bool {
	return !p.calculated.Load()
}

func (p *Planner[K, V]) Status() goapv1.Status {
	return goapv1.Status(p.status.Load())
}

func (p *Planner[K, V]) Reset() {
	if p.IsPlanning() {
		return
	}
	p.status.Store(int32(goapv1.StatusIdle))
}

func (p *Planner[K, V]) CurrentGoal() goapv1.Goal[K, V] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentGoal
}

func (p *Planner[K, V]) CurrentAgent() goapv1.Agent[K, V] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentAgent
}

func (p *Planner[K, V]) Settings() goapv1.Settings {
	return p.settings
}

func (p *Planner[K, V]) LastStats() goapv1.PlanStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastStats
}

func (p *Planner[K, V]) DebugGraph() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.debugGraph
}

// LiveStates returns the number of states the planner currently holds in
// its arena. It is zero between Plan calls.
func (p *Planner[K, V]) LiveStates() int {
	return p.states.Live()
}

// LiveNodes returns the number of search nodes currently held. It is zero
// between Plan calls.
func (p *Planner[K, V]) LiveNodes() int {
	return p.nodes.Live()
}
