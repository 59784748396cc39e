package engine_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/goap/internal/engine"
	"github.com/gxo-labs/goap/internal/logger"
	intState "github.com/gxo-labs/goap/internal/state"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	"github.com/gxo-labs/goap/pkg/goap/v1/events"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

type (
	S       = state.State[string, any]
	Ctx     = goapv1.ActionContext[string, any]
	Plan    = goapv1.Plan[string, any]
	GoalT   = goapv1.Goal[string, any]
	AgentT  = goapv1.Agent[string, any]
	ActionT = goapv1.Action[string, any]
)

// testAction is a configurable action. Settings, when set, are offered as
// variants and effectsFor derives the effects of each one.
type testAction struct {
	name       string
	pre, eff   S
	cost       float64
	settings   []S
	effectsFor func(settings S) S
	procedural func(ctx Ctx) bool

	precalcCalls atomic.Int32
}

func newAction(name string, cost float64, pre, eff map[string]any) *testAction {
	return &testAction{
		name: name,
		pre:  fromMap(pre),
		eff:  fromMap(eff),
		cost: cost,
	}
}

func (a *testAction) Name() string            { return a.name }
func (a *testAction) Preconditions(Ctx) S     { return a.pre }
func (a *testAction) Cost(Ctx) float64        { return a.cost }
func (a *testAction) Settings(Ctx) []S        { return a.settings }
func (a *testAction) IsActive() bool          { return false }
func (a *testAction) IsInterruptable() bool   { return true }
func (a *testAction) Describe(ctx Ctx) string { return a.name }
func (a *testAction) Precalculations(ctx Ctx) { a.precalcCalls.Add(1) }

func (a *testAction) AskForInterruption() {}

func (a *testAction) Effects(ctx Ctx) S {
	if a.effectsFor != nil && ctx.Settings.Valid() {
		return a.effectsFor(ctx.Settings)
	}
	return a.eff
}

func (a *testAction) CheckProceduralCondition(ctx Ctx) bool {
	if a.procedural == nil {
		return true
	}
	return a.procedural(ctx)
}

type testGoal struct {
	name     string
	goal     S
	priority float64
	possible func() bool

	mu           sync.Mutex
	plan         Plan
	precalcCalls int
}

func newGoal(name string, priority float64, goal map[string]any) *testGoal {
	return &testGoal{name: name, goal: fromMap(goal), priority: priority}
}

func (g *testGoal) Name() string              { return g.name }
func (g *testGoal) GoalState() S              { return g.goal }
func (g *testGoal) Priority() float64         { return g.priority }
func (g *testGoal) ErrorDelay() time.Duration { return time.Millisecond }

func (g *testGoal) IsGoalPossible() bool {
	return g.possible == nil || g.possible()
}

func (g *testGoal) Precalculations(AgentT) {
	g.mu.Lock()
	g.precalcCalls++
	g.mu.Unlock()
}

func (g *testGoal) SetPlan(plan Plan) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.plan = plan
}

func (g *testGoal) Plan() Plan {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.plan
}

type testAgent struct {
	name    string
	world   S
	actions []ActionT
	goals   []GoalT
	values  *intState.MemoryStateStore
}

func newAgent(name string, world map[string]any, goals []GoalT, actions ...ActionT) *testAgent {
	return &testAgent{
		name:    name,
		world:   state.FromMap(world),
		actions: actions,
		goals:   goals,
		values:  intState.NewMemoryStateStore(),
	}
}

func (a *testAgent) Name() string            { return a.name }
func (a *testAgent) WorldState() S           { return a.world }
func (a *testAgent) Actions() []ActionT      { return a.actions }
func (a *testAgent) Goals() []GoalT          { return a.goals }
func (a *testAgent) PlanValues() state.Store { return a.values }

// recordingBus keeps every emitted event.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Emit(event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) ofType(t events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func fromMap(m map[string]any) S {
	return state.FromMap(m).Snapshot()
}

func nopLogger() goaplog.Logger {
	return logger.NewNopLogger()
}

func newTestPlanner(t *testing.T, opts ...goapv1.PlannerOption) *engine.Planner[string, any] {
	t.Helper()
	planner, err := engine.NewPlanner[string, any](nopLogger(), opts...)
	require.NoError(t, err)
	return planner
}

// chopWoodAgent is the lumberjack: one goal, ChopWood needing an axe.
func chopWoodAgent(hasAxe bool) (*testAgent, *testGoal, *testAction) {
	chop := newAction("ChopWood", 1, map[string]any{"hasAxe": true}, map[string]any{"hasWood": true})
	goal := newGoal("CollectWood", 1, map[string]any{"hasWood": true})
	agent := newAgent("jack", map[string]any{"hasWood": false, "hasAxe": hasAxe}, []GoalT{goal}, chop)
	return agent, goal, chop
}

func names(plan Plan) string {
	return fmt.Sprint(plan.Names())
}
