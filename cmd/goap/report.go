package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gxo-labs/goap/internal/engine"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// agentReport is the printable outcome of planning one agent.
type agentReport struct {
	Agent string           `json:"agent" yaml:"agent"`
	Goal  string           `json:"goal,omitempty" yaml:"goal,omitempty"`
	Plan  []stepReport     `json:"plan,omitempty" yaml:"plan,omitempty"`
	Error string           `json:"error,omitempty" yaml:"error,omitempty"`
	Stats goapv1.PlanStats `json:"stats" yaml:"stats"`
}

type stepReport struct {
	Action      string                 `json:"action" yaml:"action"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}

func buildReports(results []engine.Result[string, any]) []agentReport {
	reports := make([]agentReport, 0, len(results))
	for _, res := range results {
		if res.Agent == nil {
			continue
		}
		r := agentReport{Agent: res.Agent.Name(), Stats: res.Stats}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		if res.Goal != nil {
			r.Goal = res.Goal.Name()
			for _, step := range res.Goal.Plan() {
				r.Plan = append(r.Plan, newStepReport(res.Agent, step))
			}
		}
		reports = append(reports, r)
	}
	return reports
}

func newStepReport(agent goapv1.Agent[string, any], step goapv1.PlanStep[string, any]) stepReport {
	ctx := goapv1.ActionContext[string, any]{Agent: agent, Settings: step.Settings}
	sr := stepReport{Action: step.Action.Name()}
	if desc := step.Action.Describe(ctx); desc != sr.Action {
		sr.Description = desc
	}
	if step.Settings.Valid() && step.Settings.Size() > 0 {
		sr.Settings = step.Settings.Values()
	}
	return sr
}

func writeReports(w io.Writer, format string, reports []agentReport) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	case OutputText:
		writeText(w, reports)
		return nil
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}

func writeText(w io.Writer, reports []agentReport) {
	for _, r := range reports {
		stats := fmt.Sprintf("goals=%d astar=%d iterations=%d nodes=%d in %v",
			r.Stats.GoalsConsidered, r.Stats.AStarRuns, r.Stats.Iterations, r.Stats.NodesCreated,
			r.Stats.Duration.Truncate(time.Microsecond))
		if r.Goal == "" {
			fmt.Fprintf(w, "%s: no plan (%s)\n", r.Agent, stats)
			continue
		}
		fmt.Fprintf(w, "%s: %s (%s)\n", r.Agent, r.Goal, stats)
		for i, step := range r.Plan {
			line := step.Action
			if step.Description != "" {
				line = step.Description
			}
			fmt.Fprintf(w, "  %d. %s\n", i+1, line)
		}
	}
}

func validOutput(format string) bool {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return true
	}
	return false
}
