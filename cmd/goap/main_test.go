package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("OTEL_SDK_DISABLED", "true")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type reportView struct {
	Agent string `json:"agent" yaml:"agent"`
	Goal  string `json:"goal" yaml:"goal"`
	Error string `json:"error" yaml:"error"`
	Plan  []struct {
		Action      string                 `json:"action" yaml:"action"`
		Description string                 `json:"description" yaml:"description"`
		Settings    map[string]interface{} `json:"settings" yaml:"settings"`
	} `json:"plan" yaml:"plan"`
}

func actionNames(r reportView) []string {
	var out []string
	for _, step := range r.Plan {
		out = append(out, step.Action)
	}
	return out
}

func TestPlan_JSON(t *testing.T) {
	code, stdout, stderr := runCLI(t, "plan", "-f", "testdata/forest.yaml", "-o", "json", "--workers", "2")
	require.Equal(t, ExitSuccess, code, stderr)

	var reports []reportView
	require.NoError(t, json.Unmarshal([]byte(stdout), &reports))
	require.Len(t, reports, 2)

	jack, jill := reports[0], reports[1]
	assert.Equal(t, "jack", jack.Agent)
	assert.Equal(t, "CollectWood", jack.Goal)
	assert.Equal(t, []string{"Walk", "GetAxe", "Walk", "ChopWood"}, actionNames(jack))
	assert.Equal(t, "shed", jack.Plan[0].Settings["target"])
	assert.Equal(t, "forest", jack.Plan[2].Settings["target"])
	assert.Empty(t, jack.Plan[1].Settings)

	assert.Equal(t, "jill", jill.Agent)
	assert.Equal(t, "Nap", jill.Goal)
	assert.Equal(t, []string{"Sleep"}, actionNames(jill))
	assert.Empty(t, jill.Error)
}

func TestPlan_YAMLWithAgentFilter(t *testing.T) {
	code, stdout, stderr := runCLI(t, "plan", "-f", "testdata/forest.yaml", "-o", "yaml", "--agent", "jill")
	require.Equal(t, ExitSuccess, code, stderr)

	var reports []reportView
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "jill", reports[0].Agent)
	assert.Equal(t, []string{"Sleep"}, actionNames(reports[0]))
}

func TestPlan_Text(t *testing.T) {
	code, stdout, stderr := runCLI(t, "plan", "-f", "testdata/forest.yaml")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "jack: CollectWood (")
	assert.Contains(t, stdout, "  1. Walk(at -> shed)\n")
	assert.Contains(t, stdout, "  2. GetAxe(hasAxe: true)\n")
	assert.Contains(t, stdout, "jill: Nap (")
	assert.Contains(t, stderr, "All agents planned successfully.")
}

func TestPlan_NoPlanExitsWithFailure(t *testing.T) {
	code, stdout, _ := runCLI(t, "plan", "-f", "testdata/stuck.yaml", "--retry-attempts", "2", "--retry-delay", "1ms")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "jack: no plan (")
}

func TestPlan_WritesDebugGraphs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "graphs")
	code, _, stderr := runCLI(t, "plan", "-f", "testdata/forest.yaml", "--dot", dir)
	require.Equal(t, ExitSuccess, code, stderr)

	for _, agent := range []string{"jack", "jill"} {
		data, err := os.ReadFile(filepath.Join(dir, agent+".dot"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "digraph plan")
	}
}

func TestPlan_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing file", args: []string{"plan"}, want: "-f/--file is required"},
		{name: "bad output", args: []string{"plan", "-f", "testdata/forest.yaml", "-o", "xml"}, want: "--output"},
		{name: "bad workers", args: []string{"plan", "-f", "testdata/forest.yaml", "--workers", "0"}, want: "--workers"},
		{name: "unknown flag", args: []string{"plan", "--frobnicate"}, want: "unknown flag"},
		{name: "unknown agent", args: []string{"plan", "-f", "testdata/forest.yaml", "--agent", "bob"}, want: "agent 'bob' not found"},
		{name: "unknown command", args: []string{"fly"}, want: "unknown command"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tc.args...)
			assert.Equal(t, ExitUsageError, code)
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestPlan_LoadFailure(t *testing.T) {
	code, _, stderr := runCLI(t, "plan", "-f", "testdata/missing.yaml")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Scenario configuration error")
}

func TestValidate(t *testing.T) {
	code, stdout, _ := runCLI(t, "validate", "-f", "testdata/forest.yaml")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Scenario 'forest' is valid: 2 agent(s)\n", stdout)

	code, stdout, stderr := runCLI(t, "validate", "-f", "testdata/invalid.yaml")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "unknown action type")
}

func TestKinds(t *testing.T) {
	code, stdout, _ := runCLI(t, "kinds")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "moveto\n")
	assert.Contains(t, stdout, "static\n")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "goap version dev")
}

func TestDotFileName(t *testing.T) {
	assert.Equal(t, "jack.dot", dotFileName("jack"))
	assert.Equal(t, "team_jack.dot", dotFileName("team/jack"))
}
