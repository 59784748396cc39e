// Package moveto provides the "moveto" action kind. One declared action
// stands for a family of moves, one per target: the planner sees each target
// as a settings variant {"target": t} and picks the one the goal needs.
package moveto

import (
	"fmt"

	"github.com/gxo-labs/goap/internal/module"
	"github.com/gxo-labs/goap/internal/paramutil"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

const (
	// Kind is the scenario type name of this action kind.
	Kind = "moveto"
	// SettingsTarget is the settings key holding the chosen target.
	SettingsTarget = "target"

	defaultPositionKey = "at"
)

var allowedParams = []string{"key", "targets", "cost_per_target"}

func init() {
	module.Register(Kind, NewAction)
}

type actionContext = goapv1.ActionContext[string, any]

// Action moves the agent: it sets the position key to the chosen target.
type Action struct {
	name          string
	key           string
	cost          float64
	preconditions state.State[string, any]

	// targetCosts is keyed by the printed target, since YAML map keys are
	// always strings while targets may be numbers.
	targetCosts map[string]float64

	// baseEffects are the declared effects, used when no target is chosen.
	baseEffects state.State[string, any]

	// effects and settings are prebuilt per target, in declaration order.
	effects  map[any]state.State[string, any]
	settings []state.State[string, any]
}

var _ plugin.Action = (*Action)(nil)

// NewAction builds a moveto action. Params:
//
//	key:             state key holding the position (default "at")
//	targets:         non-empty list of scalar targets (required)
//	cost_per_target: map target -> cost, overriding the action cost
func NewAction(spec plugin.ActionSpec) (plugin.Action, error) {
	if err := paramutil.CheckAllowed(spec.Params, allowedParams); err != nil {
		return nil, err
	}
	key, found, err := paramutil.GetOptionalString(spec.Params, "key")
	if err != nil {
		return nil, err
	}
	if !found || key == "" {
		key = defaultPositionKey
	}
	rawTargets, err := paramutil.GetRequiredSlice(spec.Params, "targets")
	if err != nil {
		return nil, err
	}
	costs, _, err := paramutil.GetOptionalMap(spec.Params, "cost_per_target")
	if err != nil {
		return nil, err
	}

	a := &Action{
		name:          spec.Name,
		key:           key,
		cost:          spec.Cost,
		targetCosts:   make(map[string]float64, len(costs)),
		preconditions: state.FromMap(spec.Preconditions).Snapshot(),
		baseEffects:   state.FromMap(spec.Effects).Snapshot(),
		effects:       make(map[any]state.State[string, any], len(rawTargets)),
	}
	for i, raw := range rawTargets {
		if !paramutil.IsScalar(raw) {
			return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter 'targets' item %d must be a scalar, got %T", i, raw), nil)
		}
		target := paramutil.Normalize(raw)
		if _, dup := a.effects[target]; dup {
			return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter 'targets' lists '%v' twice", target), nil)
		}
		effects := state.FromMap(spec.Effects)
		effects.Set(key, target)
		a.effects[target] = effects.Snapshot()
		a.settings = append(a.settings, state.FromMap(map[string]any{SettingsTarget: target}).Snapshot())
	}
	known := make(map[string]struct{}, len(a.effects))
	for target := range a.effects {
		known[fmt.Sprint(target)] = struct{}{}
	}
	for name, raw := range costs {
		cost, ok := paramutil.ToFloat(raw)
		if !ok || cost < 0 {
			return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter 'cost_per_target' entry '%s' must be a non-negative number, got %v", name, raw), nil)
		}
		if _, ok := known[name]; !ok {
			return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter 'cost_per_target' names unknown target '%s'", name), nil)
		}
		a.targetCosts[name] = cost
	}
	return a, nil
}

// target returns the target chosen by ctx's settings.
func (a *Action) target(ctx actionContext) (any, bool) {
	if !ctx.Settings.Valid() {
		return nil, false
	}
	return ctx.Settings.Get(SettingsTarget)
}

func (a *Action) Name() string { return a.name }

func (a *Action) Preconditions(ctx actionContext) state.State[string, any] {
	return a.preconditions
}

// Effects sets the position key to the chosen target on top of the declared
// effects.
func (a *Action) Effects(ctx actionContext) state.State[string, any] {
	if target, ok := a.target(ctx); ok {
		if effects, known := a.effects[target]; known {
			return effects
		}
	}
	return a.baseEffects
}

func (a *Action) Cost(ctx actionContext) float64 {
	if target, ok := a.target(ctx); ok {
		if cost, found := a.targetCosts[fmt.Sprint(target)]; found {
			return cost
		}
	}
	return a.cost
}

// CheckProceduralCondition rejects moving to where the agent already is.
// Without a chosen target the move is always possible.
func (a *Action) CheckProceduralCondition(ctx actionContext) bool {
	target, ok := a.target(ctx)
	if !ok || !ctx.CurrentState.Valid() {
		return true
	}
	current, present := ctx.CurrentState.Get(a.key)
	return !present || current != target
}

// Settings returns one variant per target.
func (a *Action) Settings(ctx actionContext) []state.State[string, any] {
	return a.settings
}

func (a *Action) Precalculations(ctx actionContext) {}
func (a *Action) IsActive() bool                    { return false }
func (a *Action) IsInterruptable() bool             { return true }
func (a *Action) AskForInterruption()               {}

func (a *Action) Describe(ctx actionContext) string {
	if target, ok := a.target(ctx); ok {
		return fmt.Sprintf("%s(%s -> %v)", a.name, a.key, target)
	}
	return fmt.Sprintf("%s(%s)", a.name, a.key)
}

func (a *Action) String() string {
	return a.name
}
