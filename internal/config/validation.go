package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gxo-labs/goap/internal/paramutil"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
)

// nameRegex restricts agent, goal and action names to what reads well in
// logs and DOT output.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateScenarioStructure checks the rules the JSON schema cannot
// express and returns every violation found. kinds may be nil.
func ValidateScenarioStructure(s *Scenario, kinds plugin.Registry) []error {
	var errs []error
	addErr := func(format string, args ...interface{}) {
		errs = append(errs, goaperrors.NewValidationError(fmt.Sprintf(format, args...), nil))
	}

	if len(s.Agents) == 0 {
		addErr("scenario must contain at least one agent in 'agents' list")
	}
	if err := s.Settings().Validate(); err != nil {
		errs = append(errs, goaperrors.NewValidationError("invalid planner settings", err))
	}
	if s.Retry != nil {
		validateDuration(s.Retry.Delay, "retry delay", addErr)
		validateDuration(s.Retry.MaxDelay, "retry max_delay", addErr)
	}

	agentNames := make(map[string]struct{})
	for i := range s.Agents {
		agent := &s.Agents[i]
		agentDisplay := fmt.Sprintf("agent %d ('%s')", i, agent.Name)

		if !nameRegex.MatchString(agent.Name) {
			addErr("%s: name must match %s", agentDisplay, nameRegex)
		}
		if _, dup := agentNames[agent.Name]; dup {
			addErr("%s: duplicate agent name", agentDisplay)
		}
		agentNames[agent.Name] = struct{}{}
		validateStateMap(agent.WorldState, agentDisplay+" world_state", addErr)

		if len(agent.Goals) == 0 {
			addErr("%s: at least one goal is required", agentDisplay)
		}
		goalNames := make(map[string]struct{})
		for j := range agent.Goals {
			goal := &agent.Goals[j]
			goalDisplay := fmt.Sprintf("%s goal %d ('%s')", agentDisplay, j, goal.Name)
			if !nameRegex.MatchString(goal.Name) {
				addErr("%s: name must match %s", goalDisplay, nameRegex)
			}
			if _, dup := goalNames[goal.Name]; dup {
				addErr("%s: duplicate goal name", goalDisplay)
			}
			goalNames[goal.Name] = struct{}{}
			if len(goal.State) == 0 {
				addErr("%s: state must not be empty", goalDisplay)
			}
			validateStateMap(goal.State, goalDisplay+" state", addErr)
			validateDuration(goal.ErrorDelay, goalDisplay+" error_delay", addErr)
		}

		if len(agent.Actions) == 0 {
			addErr("%s: at least one action is required", agentDisplay)
		}
		actionNames := make(map[string]struct{})
		for j := range agent.Actions {
			action := &agent.Actions[j]
			actionDisplay := fmt.Sprintf("%s action %d ('%s')", agentDisplay, j, action.Name)
			if !nameRegex.MatchString(action.Name) {
				addErr("%s: name must match %s", actionDisplay, nameRegex)
			}
			if _, dup := actionNames[action.Name]; dup {
				addErr("%s: duplicate action name", actionDisplay)
			}
			actionNames[action.Name] = struct{}{}

			if action.Type == "" {
				addErr("%s: 'type' is required", actionDisplay)
			} else if kinds != nil {
				if _, err := kinds.Get(action.Type); err != nil {
					errs = append(errs, goaperrors.NewValidationError(fmt.Sprintf("%s: unknown action type", actionDisplay), err))
				}
			}
			if action.Cost != nil && *action.Cost < 0 {
				addErr("%s: cost cannot be negative", actionDisplay)
			}
			validateStateMap(action.Preconditions, actionDisplay+" preconditions", addErr)
			validateStateMap(action.Effects, actionDisplay+" effects", addErr)
		}
	}
	return errs
}

// validateStateMap rejects values that cannot be compared with ==.
func validateStateMap(m map[string]interface{}, where string, addErr func(string, ...interface{})) {
	for key, value := range m {
		if !paramutil.IsScalar(value) {
			addErr("%s: value of '%s' must be a scalar, got %T", where, key, value)
		}
	}
}

func validateDuration(s, where string, addErr func(string, ...interface{})) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err != nil || d < 0 {
		addErr("%s: invalid duration '%s'", where, s)
	}
}
