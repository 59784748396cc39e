package errors

import (
	"errors"
	"fmt"
)

// --- GOAP Core Error Types ---

// ConfigError represents an error encountered during the loading, parsing,
// or validation of a scenario file or planner options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (e.g., scenario structure,
// schema version, action parameters) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// ContractViolationError signals misuse of a planner data structure, such as
// enqueuing a node twice or dequeuing from an empty frontier. These are
// programming errors: they are raised with panic and never recovered by the
// planner itself.
type ContractViolationError struct {
	Component string // e.g., "FastPriorityQueue", "Arena"
	Reason    string
}

func NewContractViolationError(component, reason string) *ContractViolationError {
	return &ContractViolationError{Component: component, Reason: reason}
}
func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation (%s): %s", e.Component, e.Reason)
}

// StaleHandleError is raised when a pooled state or node is used after it was
// recycled, or after its slot was handed out again.
type StaleHandleError struct {
	Kind    string // "state" or "node"
	Slot    int
	HeldGen uint32
	LiveGen uint32
}

func NewStaleHandleError(kind string, slot int, heldGen, liveGen uint32) *StaleHandleError {
	return &StaleHandleError{Kind: kind, Slot: slot, HeldGen: heldGen, LiveGen: liveGen}
}
func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale %s handle: slot %d generation %d (live generation %d)", e.Kind, e.Slot, e.HeldGen, e.LiveGen)
}

// ActionKindNotFoundError indicates that an action 'type' in a scenario could
// not be found in the action kind registry.
type ActionKindNotFoundError struct {
	Kind string
}

func NewActionKindNotFoundError(kind string) *ActionKindNotFoundError {
	return &ActionKindNotFoundError{Kind: kind}
}
func (e *ActionKindNotFoundError) Error() string {
	return fmt.Sprintf("action kind not found: %s", e.Kind)
}

// NoPlanError reports that no goal of an agent could be planned. The planner
// itself never returns it; it is produced by callers that need an error value,
// such as the retrying worker pool.
type NoPlanError struct {
	Agent string
}

func NewNoPlanError(agent string) *NoPlanError {
	return &NoPlanError{Agent: agent}
}
func (e *NoPlanError) Error() string {
	if e.Agent == "" {
		return "no plan found"
	}
	return fmt.Sprintf("no plan found for agent '%s'", e.Agent)
}

// IsNoPlan checks if an error is a NoPlanError using errors.As.
func IsNoPlan(err error) bool {
	var noPlan *NoPlanError
	return errors.As(err, &noPlan)
}
