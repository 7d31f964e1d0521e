package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/syncedhp/internal/engine"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
participants:
  - name: Steve
    satiation: 17
  - name: Alex
    offline: true
steps:
  - create: Alpha
  - add: { participant: Steve, group: Alpha }
  - damage: { participant: Steve, amount: 5 }
  - heal: { participant: Steve, amount: 1, cause: SATIATED }
  - create: Alpha
    expect: NAME_TAKEN
assertions:
  - type: group_vitality
    group: Alpha
    value: 15
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Participants, 2)
	assert.Equal(t, 17, *scenario.Participants[0].Satiation)
	assert.True(t, scenario.Participants[1].Offline)

	require.Len(t, scenario.Steps, 5)
	assert.Equal(t, "Alpha", scenario.Steps[0].Create)
	assert.Equal(t, &AddStep{Participant: "Steve", Group: "Alpha"}, scenario.Steps[1].Add)
	assert.Equal(t, 5.0, scenario.Steps[2].Damage.Amount)
	assert.Equal(t, engine.CauseSatiated, scenario.Steps[3].Heal.Cause)
	assert.Equal(t, "NAME_TAKEN", scenario.Steps[4].Expect)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 15.0, *scenario.Assertions[0].Value)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name: "missing name",
			content: `
description: d
steps: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
steps: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "description is required",
		},
		{
			name: "missing steps",
			content: `
name: n
description: d
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "steps list is required",
		},
		{
			name: "missing assertions",
			content: `
name: n
description: d
steps: [{create: Alpha}]
`,
			errMsg: "assertions list is required",
		},
		{
			name: "step without action",
			content: `
name: n
description: d
steps: [{expect: NOT_FOUND}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "steps[0]: no action set",
		},
		{
			name: "step with two actions",
			content: `
name: n
description: d
steps: [{create: Alpha, delete: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "steps[0]: multiple actions set",
		},
		{
			name: "add without group",
			content: `
name: n
description: d
steps: [{add: {participant: Steve}}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "add: participant and group are required",
		},
		{
			name: "negative damage",
			content: `
name: n
description: d
steps: [{damage: {participant: Steve, amount: -1}}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "damage: amount must be a finite non-negative number",
		},
		{
			name: "NaN heal",
			content: `
name: n
description: d
steps: [{heal: {participant: Steve, amount: .nan}}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "heal: amount must be a finite non-negative number",
		},
		{
			name: "infinite damage",
			content: `
name: n
description: d
steps: [{damage: {participant: Steve, amount: .inf}}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "damage: amount must be a finite non-negative number",
		},
		{
			name: "duplicate participant",
			content: `
name: n
description: d
participants: [{name: Steve}, {name: Steve}]
steps: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: `duplicate name "Steve"`,
		},
		{
			name: "document not a mapping",
			content: `
name: n
description: d
document: [1, 2]
steps: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
			errMsg: "document must be a mapping",
		},
		{
			name: "error assertion outside steps",
			content: `
name: n
description: d
steps: [{create: Alpha}]
assertions: [{type: error, step: 1}]
`,
			errMsg: "step 1 outside 0..0",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: d
steps: [{create: Alpha}]
assertions: [{type: final_state}]
`,
			errMsg: `unknown assertion type "final_state"`,
		},
		{
			name: "group_vitality without value",
			content: `
name: n
description: d
steps: [{create: Alpha}]
assertions: [{type: group_vitality, group: Alpha}]
`,
			errMsg: "group and value are required",
		},
		{
			name: "negative trace_count",
			content: `
name: n
description: d
steps: [{create: Alpha}]
assertions: [{type: trace_count, kind: create, count: -1}]
`,
			errMsg: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "typo in top-level field",
			content: `
name: n
description: d
step: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
		},
		{
			name: "typo in step action",
			content: `
name: n
description: d
steps: [{craete: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
		},
		{
			name: "typo in participant",
			content: `
name: n
description: d
participants: [{name: Steve, satiaton: 3}]
steps: [{create: Alpha}]
assertions: [{type: group_count, count: 1}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to parse YAML")
		})
	}
}

func TestLoadScenario_TraceCountZeroAllowed(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: n
description: d
steps: [{create: Alpha}]
assertions: [{type: trace_count, kind: damage, count: 0}]
`))
	require.NoError(t, err)
}

func TestLoadScenario_Document(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: n
description: d
document:
  Health Bar Count: 1
  Health Bar 1:
    Name: Alpha
    Health: 20.0
    Player Count: 0
steps: [{restart: true}]
assertions: [{type: group_count, count: 1}]
`))
	require.NoError(t, err)
	assert.Equal(t, yaml.MappingNode, scenario.Document.Kind)
}

func TestStep_Kind(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Step{Create: "A"}, KindCreate},
		{Step{Delete: "A"}, KindDelete},
		{Step{Add: &AddStep{}}, KindAdd},
		{Step{Remove: "S"}, KindRemove},
		{Step{List: "A"}, KindList},
		{Step{Join: "S"}, KindJoin},
		{Step{Quit: "S"}, KindQuit},
		{Step{Damage: &Amount{}}, KindDamage},
		{Step{Heal: &Amount{}}, KindHeal},
		{Step{Respawn: "S"}, KindRespawn},
		{Step{Move: &MoveStep{}}, KindMove},
		{Step{Rename: &Rename{}}, KindRename},
		{Step{Restart: true}, KindRestart},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := tt.step.Kind()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
