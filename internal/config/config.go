package config

import (
	"time"

	"github.com/gxo-labs/goap/internal/retry"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
)

// Scenario is the top-level structure of a scenario YAML file: planner
// settings plus the agents to plan for.
type Scenario struct {
	Name          string         `yaml:"name"`
	SchemaVersion string         `yaml:"schemaVersion"`
	Planner       *PlannerConfig `yaml:"planner,omitempty"`
	Retry         *RetryConfig   `yaml:"retry,omitempty"`
	Agents        []Agent        `yaml:"agents"`
	// FilePath is the source file, for error messages. It is not parsed.
	FilePath string `yaml:"-"`
}

// PlannerConfig overrides planner settings. Unset fields keep the defaults.
type PlannerConfig struct {
	MaxIterations       *int     `yaml:"max_iterations,omitempty"`
	MaxNodesToExpand    *int     `yaml:"max_nodes_to_expand,omitempty"`
	EarlyExit           *bool    `yaml:"early_exit,omitempty"`
	UsingDynamicActions *bool    `yaml:"using_dynamic_actions,omitempty"`
	DebugPlan           *bool    `yaml:"debug_plan,omitempty"`
	HeuristicMultiplier *float64 `yaml:"heuristic_multiplier,omitempty"`
	ExploredKeying      string   `yaml:"explored_keying,omitempty"`
}

// RetryConfig controls re-planning of agents for which no plan was found.
type RetryConfig struct {
	Attempts      int      `yaml:"attempts,omitempty"`
	Delay         string   `yaml:"delay,omitempty"`
	MaxDelay      string   `yaml:"max_delay,omitempty"`
	BackoffFactor *float64 `yaml:"backoff_factor,omitempty"`
	Jitter        *float64 `yaml:"jitter,omitempty"`
}

// Agent declares one planning subject.
type Agent struct {
	Name       string                 `yaml:"name"`
	WorldState map[string]interface{} `yaml:"world_state,omitempty"`
	// PlanValues seeds the agent's plan value store.
	PlanValues map[string]interface{} `yaml:"plan_values,omitempty"`
	Goals      []Goal                 `yaml:"goals"`
	Actions    []Action               `yaml:"actions"`
}

// Goal declares a desired world state.
type Goal struct {
	Name     string                 `yaml:"name"`
	Priority float64                `yaml:"priority,omitempty"`
	State    map[string]interface{} `yaml:"state"`
	// Possible disables the goal when explicitly false.
	Possible   *bool  `yaml:"possible,omitempty"`
	ErrorDelay string `yaml:"error_delay,omitempty"`
}

// Action declares one action of an agent. Type selects the registered
// action kind; Params are interpreted by that kind.
type Action struct {
	Name          string                 `yaml:"name"`
	Type          string                 `yaml:"type"`
	Cost          *float64               `yaml:"cost,omitempty"`
	Preconditions map[string]interface{} `yaml:"preconditions,omitempty"`
	Effects       map[string]interface{} `yaml:"effects,omitempty"`
	Params        map[string]interface{} `yaml:"params,omitempty"`
}

// Settings merges the configured overrides into goapv1.DefaultSettings.
func (s *Scenario) Settings() goapv1.Settings {
	settings := goapv1.DefaultSettings()
	p := s.Planner
	if p == nil {
		return settings
	}
	if p.MaxIterations != nil {
		settings.MaxIterations = *p.MaxIterations
	}
	if p.MaxNodesToExpand != nil {
		settings.MaxNodesToExpand = *p.MaxNodesToExpand
	}
	if p.EarlyExit != nil {
		settings.PlanningEarlyExit = *p.EarlyExit
	}
	if p.UsingDynamicActions != nil {
		settings.UsingDynamicActions = *p.UsingDynamicActions
	}
	if p.DebugPlan != nil {
		settings.DebugPlan = *p.DebugPlan
	}
	if p.HeuristicMultiplier != nil {
		settings.HeuristicMultiplier = *p.HeuristicMultiplier
	}
	if p.ExploredKeying != "" {
		settings.ExploredKeying = goapv1.Keying(p.ExploredKeying)
	}
	return settings
}

// RetrySettings converts the retry block into a retry.Config. Without a
// block a single attempt is made.
func (s *Scenario) RetrySettings() retry.Config {
	cfg := retry.Config{Attempts: 1, BackoffFactor: 1.0}
	r := s.Retry
	if r == nil {
		return cfg
	}
	if r.Attempts >= 1 {
		cfg.Attempts = r.Attempts
	}
	cfg.Delay = parseDuration(r.Delay)
	cfg.MaxDelay = parseDuration(r.MaxDelay)
	if r.BackoffFactor != nil && *r.BackoffFactor >= 1.0 {
		cfg.BackoffFactor = *r.BackoffFactor
	}
	if r.Jitter != nil {
		cfg.Jitter = min(max(*r.Jitter, 0), 1)
	}
	return cfg
}

// ErrorDelayDuration returns the goal's error delay, or 0 if unset.
func (g *Goal) ErrorDelayDuration() time.Duration {
	return parseDuration(g.ErrorDelay)
}

// IsPossible reports whether the goal is enabled.
func (g *Goal) IsPossible() bool {
	return g.Possible == nil || *g.Possible
}

// CostOrDefault returns the declared cost, or 1.
func (a *Action) CostOrDefault() float64 {
	if a.Cost == nil {
		return 1
	}
	return *a.Cost
}

// parseDuration returns 0 for empty, invalid or negative input; validation
// reports the invalid cases.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
