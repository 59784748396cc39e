package v1

import (
	"context"
	"fmt"
	"time"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/events"
	"github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/gxo-labs/goap/pkg/goap/v1/metrics"
	"github.com/gxo-labs/goap/pkg/goap/v1/tracing"
)

// PlannerV1 is the public interface of the GOAP planner.
type PlannerV1[K comparable, V comparable] interface {
	// Plan selects the highest-priority goal of agent that can be planned,
	// hands it its plan and returns it. blacklistGoal is skipped. A goal whose
	// plan equals currentPlan is rejected. callback, when non-nil, receives
	// the winning goal or nil. A nil result means no plan was found; that is
	// not an error.
	Plan(agent Agent[K, V], blacklistGoal Goal[K, V], currentPlan Plan[K, V], callback func(Goal[K, V])) Goal[K, V]
	// PlanContext is Plan with a context used for tracing and checked
	// between goals. A single search is never interrupted.
	PlanContext(ctx context.Context, agent Agent[K, V], blacklistGoal Goal[K, V], currentPlan Plan[K, V], callback func(Goal[K, V])) Goal[K, V]

	// IsPlanning reports whether a Plan call has started and not finished.
	IsPlanning() bool
	// Status is Planning during a Plan call and Succeeded or Failed after
	// it, until Reset returns the planner to Idle.
	Status() Status
	// Reset returns a finished planner to Idle once its result has been
	// read. It has no effect while a Plan call is running.
	Reset()
	CurrentGoal() Goal[K, V]
	CurrentAgent() Agent[K, V]
	Settings() Settings
	// LastStats describes the last finished Plan call.
	LastStats() PlanStats
	// DebugGraph returns the Graphviz rendering of the last search when
	// DebugPlan is enabled, or an empty string.
	DebugGraph() string
}

// Configurable is implemented by planners accepting PlannerOption values.
type Configurable interface {
	SetSettings(settings Settings) error
	SetLogger(logger log.Logger) error
	SetEventBus(bus events.Bus) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
}

// PlannerOption configures a planner at creation.
type PlannerOption func(Configurable) error

// Status is the planner state machine: Idle -> Planning -> Succeeded|Failed.
type Status int

const (
	StatusIdle Status = iota
	StatusPlanning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusPlanning:
		return "Planning"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Keying selects how the search recognizes previously seen states.
type Keying string

const (
	// KeyingIdentity treats every search state as distinct, even when two
	// states hold the same pairs.
	KeyingIdentity Keying = "identity"
	// KeyingStructural treats nodes with equal state and equal residual
	// goal as the same search state, pruning duplicates reached through
	// different action orders.
	KeyingStructural Keying = "structural"
)

// MinNodesToExpand is the smallest frontier that can hold the root and one
// child below the overflow margin.
const MinNodesToExpand = 3

// Settings are the scalar planner parameters.
type Settings struct {
	// MaxIterations bounds the children generated per search. Once it is
	// spent the search stops expanding but still goal-tests the frontier.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// MaxNodesToExpand is the frontier capacity, at least MinNodesToExpand.
	MaxNodesToExpand int `yaml:"max_nodes_to_expand" json:"max_nodes_to_expand"`
	// PlanningEarlyExit returns the first child satisfying the goal without
	// waiting for it to reach the head of the frontier.
	PlanningEarlyExit bool `yaml:"early_exit" json:"early_exit"`
	// UsingDynamicActions disables the static reachability pre-check, for
	// actions whose effects depend on planning-time data.
	UsingDynamicActions bool `yaml:"using_dynamic_actions" json:"using_dynamic_actions"`
	// DebugPlan records the search graph for DebugGraph.
	DebugPlan           bool    `yaml:"debug_plan" json:"debug_plan"`
	HeuristicMultiplier float64 `yaml:"heuristic_multiplier" json:"heuristic_multiplier"`
	ExploredKeying      Keying  `yaml:"explored_keying" json:"explored_keying"`
}

// DefaultSettings returns the stock planner parameters.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations:       1000,
		MaxNodesToExpand:    10000,
		PlanningEarlyExit:   false,
		UsingDynamicActions: false,
		DebugPlan:           false,
		HeuristicMultiplier: 1,
		ExploredKeying:      KeyingIdentity,
	}
}

// Validate checks the settings for values the planner cannot run with.
func (s Settings) Validate() error {
	if s.MaxIterations <= 0 {
		return goaperrors.NewConfigError(fmt.Sprintf("max iterations must be positive, got %d", s.MaxIterations), nil)
	}
	if s.MaxNodesToExpand < MinNodesToExpand {
		return goaperrors.NewConfigError(fmt.Sprintf("max nodes to expand must be at least %d, got %d", MinNodesToExpand, s.MaxNodesToExpand), nil)
	}
	if s.HeuristicMultiplier < 0 {
		return goaperrors.NewConfigError(fmt.Sprintf("heuristic multiplier cannot be negative, got %g", s.HeuristicMultiplier), nil)
	}
	switch s.ExploredKeying {
	case KeyingIdentity, KeyingStructural:
	default:
		return goaperrors.NewConfigError(fmt.Sprintf("unknown explored keying '%s'", s.ExploredKeying), nil)
	}
	return nil
}

// PlanStats summarizes one Plan call.
type PlanStats struct {
	PlanID          string        `json:"plan_id" yaml:"plan_id"`
	Agent           string        `json:"agent" yaml:"agent"`
	Goal            string        `json:"goal,omitempty" yaml:"goal,omitempty"`
	GoalsConsidered int           `json:"goals_considered" yaml:"goals_considered"`
	GoalsPrechecked int           `json:"goals_prechecked" yaml:"goals_prechecked"` // rejected before any search
	AStarRuns       int           `json:"astar_runs" yaml:"astar_runs"`
	Iterations      int           `json:"iterations" yaml:"iterations"`
	NodesCreated    int           `json:"nodes_created" yaml:"nodes_created"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}

// WithSettings sets the planner parameters.
func WithSettings(settings Settings) PlannerOption {
	return func(p Configurable) error {
		if err := settings.Validate(); err != nil {
			return err
		}
		return p.SetSettings(settings)
	}
}

// WithLogger sets the logger used by the planner.
func WithLogger(logger log.Logger) PlannerOption {
	return func(p Configurable) error {
		if logger == nil {
			return goaperrors.NewConfigError("logger cannot be nil", nil)
		}
		return p.SetLogger(logger)
	}
}

// WithEventBus sets the bus receiving planner events.
func WithEventBus(bus events.Bus) PlannerOption {
	return func(p Configurable) error {
		if bus == nil {
			return goaperrors.NewConfigError("event bus cannot be nil", nil)
		}
		return p.SetEventBus(bus)
	}
}

// WithMetricsRegistryProvider sets the registry planner metrics are
// registered on.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) PlannerOption {
	return func(p Configurable) error {
		if provider == nil {
			return goaperrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return p.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider sets the tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) PlannerOption {
	return func(p Configurable) error {
		if provider == nil {
			return goaperrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return p.SetTracerProvider(provider)
	}
}
