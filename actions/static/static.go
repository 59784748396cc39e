// Package static provides the "static" action kind: an action with fixed
// preconditions, effects and cost, taken verbatim from the scenario.
package static

import (
	"sync/atomic"

	"github.com/gxo-labs/goap/internal/module"
	"github.com/gxo-labs/goap/internal/paramutil"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

// Kind is the scenario type name of this action kind.
const Kind = "static"

var allowedParams = []string{"interruptable", "description"}

func init() {
	module.Register(Kind, NewAction)
}

// Action is an action whose every property is known up front.
type Action struct {
	name          string
	description   string
	cost          float64
	preconditions state.State[string, any]
	effects       state.State[string, any]
	interruptable bool
	interrupted   atomic.Bool
}

var _ plugin.Action = (*Action)(nil)

// NewAction builds a static action. Params: interruptable (bool, default
// true) and description (string, used in plan logs).
func NewAction(spec plugin.ActionSpec) (plugin.Action, error) {
	if err := paramutil.CheckAllowed(spec.Params, allowedParams); err != nil {
		return nil, err
	}
	interruptable, found, err := paramutil.GetOptionalBool(spec.Params, "interruptable")
	if err != nil {
		return nil, err
	}
	if !found {
		interruptable = true
	}
	description, _, err := paramutil.GetOptionalString(spec.Params, "description")
	if err != nil {
		return nil, err
	}

	return &Action{
		name:          spec.Name,
		description:   description,
		cost:          spec.Cost,
		preconditions: state.FromMap(spec.Preconditions).Snapshot(),
		effects:       state.FromMap(spec.Effects).Snapshot(),
		interruptable: interruptable,
	}, nil
}

type actionContext = goapv1.ActionContext[string, any]

func (a *Action) Name() string                                         { return a.name }
func (a *Action) Preconditions(actionContext) state.State[string, any] { return a.preconditions }
func (a *Action) Effects(actionContext) state.State[string, any]       { return a.effects }
func (a *Action) Cost(actionContext) float64                           { return a.cost }
func (a *Action) CheckProceduralCondition(actionContext) bool          { return true }
func (a *Action) Settings(actionContext) []state.State[string, any]    { return nil }
func (a *Action) IsActive() bool                                       { return false }
func (a *Action) IsInterruptable() bool                                { return a.interruptable }

// Precalculations does nothing; a static action has no runtime inputs.
func (a *Action) Precalculations(c actionContext) {}

// AskForInterruption records the request when the action is interruptable.
func (a *Action) AskForInterruption() {
	if a.interruptable {
		a.interrupted.Store(true)
	}
}

// Interrupted reports whether an interruption was requested.
func (a *Action) Interrupted() bool {
	return a.interrupted.Load()
}

// Describe returns the description param, or "name(effects)".
func (a *Action) Describe(c actionContext) string {
	if a.description != "" {
		return a.description
	}
	return a.name + "(" + a.effects.String() + ")"
}

func (a *Action) String() string {
	return a.name
}
