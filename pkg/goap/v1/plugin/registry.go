// Package plugin defines how action kinds are plugged into scenario loading.
// An action kind turns the declarative action entry of a scenario file into a
// runnable Action.
package plugin

import (
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
)

// Action is the concrete action type produced by scenario-driven kinds:
// string keys and scalar values, as they appear in YAML.
type Action = goapv1.Action[string, any]

// ActionSpec is the declarative description of one action.
type ActionSpec struct {
	// Name is the unique action name within its agent.
	Name string
	// Kind is the registered action kind, e.g. "static".
	Kind string
	Cost float64
	// Preconditions and Effects hold scalar values only.
	Preconditions map[string]interface{}
	Effects       map[string]interface{}
	// Params holds kind-specific parameters. Use internal/paramutil to read
	// them.
	Params map[string]interface{}
}

// ActionFactory builds an action from its spec. It returns a
// ValidationError when the spec's params are unusable for the kind.
type ActionFactory func(spec ActionSpec) (Action, error)

// Registry maps action kind names to factories.
type Registry interface {
	// Get returns the factory registered for kind, or an
	// ActionKindNotFoundError.
	Get(kind string) (ActionFactory, error)
	// Register associates kind with factory. It must be safe for concurrent
	// use and rejects empty names, nil factories and duplicates.
	Register(kind string, factory ActionFactory) error
	// List returns the registered kind names in no particular order.
	List() []string
}
