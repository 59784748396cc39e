// Package scenario turns a validated scenario configuration into runnable
// agents, goals and actions for the planner.
package scenario

import (
	"fmt"
	"sync"
	"time"

	"github.com/gxo-labs/goap/internal/config"
	"github.com/gxo-labs/goap/internal/paramutil"
	intState "github.com/gxo-labs/goap/internal/state"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

// Plan value keys written when a goal receives a plan.
const (
	PlanValueGoal = "goal"
	PlanValuePlan = "plan"
)

// Agent is a scenario-defined planning subject.
type Agent struct {
	name       string
	world      state.State[string, any]
	actions    []goapv1.Action[string, any]
	goals      []goapv1.Goal[string, any]
	planValues *intState.MemoryStateStore
}

var _ goapv1.Agent[string, any] = (*Agent)(nil)

func (a *Agent) Name() string                          { return a.name }
func (a *Agent) WorldState() state.State[string, any]  { return a.world }
func (a *Agent) Actions() []goapv1.Action[string, any] { return a.actions }
func (a *Agent) Goals() []goapv1.Goal[string, any]     { return a.goals }
func (a *Agent) PlanValues() state.Store               { return a.planValues }

// Goal is a scenario-defined goal. Its plan is guarded by a mutex because
// the CLI reads it while pooled planners may still be writing other goals.
type Goal struct {
	name       string
	goal       state.State[string, any]
	priority   float64
	possible   bool
	errorDelay time.Duration
	agent      *Agent

	mu   sync.RWMutex
	plan goapv1.Plan[string, any]
}

var _ goapv1.Goal[string, any] = (*Goal)(nil)

func (g *Goal) Name() string                        { return g.name }
func (g *Goal) GoalState() state.State[string, any] { return g.goal }
func (g *Goal) Priority() float64                   { return g.priority }
func (g *Goal) IsGoalPossible() bool                { return g.possible }
func (g *Goal) ErrorDelay() time.Duration           { return g.errorDelay }

// Precalculations does nothing: scenario goals are static.
func (g *Goal) Precalculations(agent goapv1.Agent[string, any]) {}

// SetPlan stores the plan and records it in the agent's plan values so an
// executor can pick it up without holding the goal.
func (g *Goal) SetPlan(plan goapv1.Plan[string, any]) {
	g.mu.Lock()
	g.plan = plan
	g.mu.Unlock()

	if g.agent != nil {
		_ = g.agent.planValues.Set(PlanValueGoal, g.name)
		_ = g.agent.planValues.Set(PlanValuePlan, plan.Names())
	}
}

func (g *Goal) Plan() goapv1.Plan[string, any] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.plan
}

func (g *Goal) String() string {
	return fmt.Sprintf("%s (priority %g)", g.name, g.priority)
}

// Build creates one Agent per configured agent, resolving action types
// through kinds.
func Build(s *config.Scenario, kinds plugin.Registry) ([]*Agent, error) {
	if kinds == nil {
		return nil, goaperrors.NewConfigError("action kind registry cannot be nil", nil)
	}
	agents := make([]*Agent, 0, len(s.Agents))
	for i := range s.Agents {
		agent, err := buildAgent(&s.Agents[i], kinds)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// AsPlannerAgents converts agents for the planner APIs.
func AsPlannerAgents(agents []*Agent) []goapv1.Agent[string, any] {
	out := make([]goapv1.Agent[string, any], len(agents))
	for i, a := range agents {
		out[i] = a
	}
	return out
}

func buildAgent(cfg *config.Agent, kinds plugin.Registry) (*Agent, error) {
	agent := &Agent{
		name:       cfg.Name,
		world:      state.FromMap(paramutil.NormalizeMap(cfg.WorldState)),
		planValues: intState.NewMemoryStateStore(),
	}
	if err := agent.planValues.Load(cfg.PlanValues); err != nil {
		return nil, goaperrors.NewConfigError(fmt.Sprintf("agent '%s': failed to load plan values", cfg.Name), err)
	}

	for i := range cfg.Goals {
		gc := &cfg.Goals[i]
		agent.goals = append(agent.goals, &Goal{
			name:       gc.Name,
			goal:       state.FromMap(paramutil.NormalizeMap(gc.State)),
			priority:   gc.Priority,
			possible:   gc.IsPossible(),
			errorDelay: gc.ErrorDelayDuration(),
			agent:      agent,
		})
	}

	for i := range cfg.Actions {
		ac := &cfg.Actions[i]
		factory, err := kinds.Get(ac.Type)
		if err != nil {
			return nil, goaperrors.NewConfigError(fmt.Sprintf("agent '%s' action '%s'", cfg.Name, ac.Name), err)
		}
		params := ac.Params
		if params == nil {
			params = map[string]interface{}{}
		}
		action, err := factory(plugin.ActionSpec{
			Name:          ac.Name,
			Kind:          ac.Type,
			Cost:          ac.CostOrDefault(),
			Preconditions: paramutil.NormalizeMap(ac.Preconditions),
			Effects:       paramutil.NormalizeMap(ac.Effects),
			Params:        params,
		})
		if err != nil {
			return nil, goaperrors.NewConfigError(fmt.Sprintf("agent '%s': failed to build action '%s' of type '%s'", cfg.Name, ac.Name, ac.Type), err)
		}
		agent.actions = append(agent.actions, action)
	}
	return agent, nil
}
