package v1

import (
	"time"

	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

// ActionContext is what the planner hands to an action while it evaluates
// it at one point of the search.
type ActionContext[K comparable, V comparable] struct {
	Agent Agent[K, V]
	// CurrentState is the hypothetical state at the node being expanded.
	CurrentState state.State[K, V]
	// GoalState is the goal still to be satisfied at that node.
	GoalState state.State[K, V]
	// Next is the action chosen at the node being expanded (nil at the root).
	Next Action[K, V]
	// Settings is the parameter variant under evaluation. It is the zero
	// State when the action has no settings.
	Settings state.State[K, V]
}

// Action is a single step an agent can take. The planner calls every method
// from its own goroutine, and several planners may query the same action
// concurrently, so implementations must not mutate shared runtime state
// outside Precalculations. Actions are compared by identity; implement them
// on pointer types.
type Action[K comparable, V comparable] interface {
	Name() string
	// Preconditions returns the state required before the action can run.
	Preconditions(ctx ActionContext[K, V]) state.State[K, V]
	// Effects returns the state the action produces.
	Effects(ctx ActionContext[K, V]) state.State[K, V]
	Cost(ctx ActionContext[K, V]) float64
	// CheckProceduralCondition is a runtime applicability test that cannot
	// be expressed as a precondition.
	CheckProceduralCondition(ctx ActionContext[K, V]) bool
	// Precalculations runs once per evaluation before the other methods.
	Precalculations(ctx ActionContext[K, V])
	// Settings returns the parameter variants to try. An empty result means
	// the action is evaluated once with no settings.
	Settings(ctx ActionContext[K, V]) []state.State[K, V]

	IsActive() bool
	IsInterruptable() bool
	AskForInterruption()

	// Describe renders the action for plan logs.
	Describe(ctx ActionContext[K, V]) string
}

// Goal is a desired world state competing with an agent's other goals.
type Goal[K comparable, V comparable] interface {
	Name() string
	GoalState() state.State[K, V]
	Priority() float64
	IsGoalPossible() bool
	Precalculations(agent Agent[K, V])
	// SetPlan receives the plan chosen for this goal.
	SetPlan(plan Plan[K, V])
	Plan() Plan[K, V]
	// ErrorDelay is how long an agent should wait before planning again after
	// this goal's plan failed.
	ErrorDelay() time.Duration
}

// Agent is the planning subject: it owns the live world state and offers the
// candidate goals and actions.
type Agent[K comparable, V comparable] interface {
	Name() string
	// WorldState is the agent's live, mutable world state. The planner copies
	// it once at the start of each planning pass.
	WorldState() state.State[K, V]
	// Actions are evaluated in reverse order during expansion.
	Actions() []Action[K, V]
	Goals() []Goal[K, V]
	// PlanValues is scratch space shared between planning and execution.
	PlanValues() state.Store
}

// PlanStep is one action of a plan with the settings it was chosen with.
// Settings is a frozen snapshot, or the zero State when the action has none.
type PlanStep[K comparable, V comparable] struct {
	Action   Action[K, V]
	Settings state.State[K, V]
}

// Plan is an ordered sequence of steps, first to execute first.
type Plan[K comparable, V comparable] []PlanStep[K, V]

// Equal reports whether p and other run the same actions, by identity, with
// equal settings.
func (p Plan[K, V]) Equal(other Plan[K, V]) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		a, b := p[i], other[i]
		if a.Action != b.Action {
			return false
		}
		if a.Settings.Valid() != b.Settings.Valid() {
			return false
		}
		if a.Settings.Valid() && !a.Settings.Equal(b.Settings) {
			return false
		}
	}
	return true
}

// Names returns the action names of p in execution order.
func (p Plan[K, V]) Names() []string {
	names := make([]string, len(p))
	for i, step := range p {
		names[i] = step.Action.Name()
	}
	return names
}
