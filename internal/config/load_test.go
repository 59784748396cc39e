package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/goap/internal/config"
	"github.com/gxo-labs/goap/internal/module"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
)

const minimalScenario = `
schemaVersion: "v1.0.0"
agents:
  - name: a
    goals:
      - name: g
        state: {done: true}
    actions:
      - name: act
        type: static
        effects: {done: true}
`

func TestLoadScenarioFromFile(t *testing.T) {
	s, err := config.LoadScenarioFromFile("testdata/lumberjack.yaml")
	require.NoError(t, err)

	assert.Equal(t, "lumberjack", s.Name)
	require.Len(t, s.Agents, 1)
	agent := s.Agents[0]
	assert.Equal(t, "jack", agent.Name)
	assert.Equal(t, map[string]interface{}{"hasAxe": false}, agent.WorldState)
	require.Len(t, agent.Actions, 2)
	assert.Equal(t, 2.0, agent.Actions[0].CostOrDefault())
	assert.Equal(t, time.Second, agent.Goals[0].ErrorDelayDuration())
	assert.True(t, agent.Goals[0].IsPossible())

	settings := s.Settings()
	assert.Equal(t, 500, settings.MaxIterations)
	assert.Equal(t, 10000, settings.MaxNodesToExpand)
	assert.Equal(t, goapv1.KeyingStructural, settings.ExploredKeying)

	retryCfg := s.RetrySettings()
	assert.Equal(t, 3, retryCfg.Attempts)
	assert.Equal(t, 10*time.Millisecond, retryCfg.Delay)
}

func TestLoadScenario_Defaults(t *testing.T) {
	s, err := config.LoadScenario([]byte(minimalScenario), "minimal.yaml")
	require.NoError(t, err)
	assert.Equal(t, goapv1.DefaultSettings(), s.Settings())
	assert.Equal(t, 1, s.RetrySettings().Attempts)
	assert.Equal(t, 1.0, s.Agents[0].Actions[0].CostOrDefault())
}

func TestLoadScenario_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		yaml        string
		errContains string
	}{
		{
			name:        "empty document",
			yaml:        "   ",
			errContains: "cannot be empty",
		},
		{
			name:        "missing agents",
			yaml:        `schemaVersion: "v1.0.0"`,
			errContains: "schema validation",
		},
		{
			name: "unknown top level field",
			yaml: minimalScenario + `
extra: 1
`,
			errContains: "schema validation",
		},
		{
			name:        "incompatible major version",
			yaml:        replaceVersion(minimalScenario, "v2.0.0"),
			errContains: "not compatible",
		},
		{
			name:        "invalid version",
			yaml:        replaceVersion(minimalScenario, "one"),
			errContains: "invalid 'schemaVersion' format",
		},
		{
			name: "non scalar state value",
			yaml: `
schemaVersion: "1.2.0"
agents:
  - name: a
    goals:
      - name: g
        state: {done: [1, 2]}
    actions:
      - name: act
        type: static
`,
			errContains: "schema validation",
		},
		{
			name: "duplicate names",
			yaml: `
schemaVersion: "v1.0.0"
agents:
  - name: a
    goals:
      - name: g
        state: {done: true}
      - name: g
        state: {other: true}
    actions:
      - name: act
        type: static
      - name: act
        type: static
`,
			errContains: "2 validation error(s)",
		},
		{
			name: "bad planner settings",
			yaml: `
schemaVersion: "v1.0.0"
planner:
  max_nodes_to_expand: 1
agents:
  - name: a
    goals:
      - name: g
        state: {done: true}
    actions:
      - name: act
        type: static
`,
			errContains: "schema validation",
		},
		{
			name: "frontier too small to plan",
			yaml: `
schemaVersion: "v1.0.0"
planner:
  max_nodes_to_expand: 2
agents:
  - name: a
    goals:
      - name: g
        state: {done: true}
    actions:
      - name: act
        type: static
`,
			errContains: "schema validation",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadScenario([]byte(tc.yaml), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestLoadScenario_UnknownActionKind(t *testing.T) {
	kinds := module.NewStaticRegistry()
	require.NoError(t, kinds.Register("moveto", func(spec plugin.ActionSpec) (plugin.Action, error) {
		return nil, nil
	}))

	_, err := config.LoadScenario([]byte(minimalScenario), "test.yaml", config.WithActionKinds(kinds))
	require.Error(t, err)
	var notFound *goaperrors.ActionKindNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "static", notFound.Kind)
}

func TestValidateScenarioStructure(t *testing.T) {
	negative := -1.0
	s := &config.Scenario{
		Agents: []config.Agent{{
			Name:  "bad name",
			Goals: []config.Goal{{Name: "g", State: map[string]interface{}{}, ErrorDelay: "soon"}},
			Actions: []config.Action{{
				Name:    "act",
				Cost:    &negative,
				Effects: map[string]interface{}{"list": []interface{}{1}},
			}},
		}},
	}
	errs := config.ValidateScenarioStructure(s, nil)

	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	assert.Len(t, errs, 6, messages)
}

func replaceVersion(doc, version string) string {
	return `
schemaVersion: "` + version + `"` + doc[len("\nschemaVersion: \"v1.0.0\""):]
}
