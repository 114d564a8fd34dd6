package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/portmatch/internal/ir"
)

const minimalScenario = `
name: minimal
description: "one satisfied transition"
steps:
  - trigger: load
    app:
      mode: GUIDED
      capabilities: [ACCEPT_NEXT]
    user:
      intents: [WANT_NEXT]
    verdict: MATCHES
assertions:
  - type: transition_count
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "GUIDED", s.Steps[0].App.Mode)
	assert.Equal(t, []string{"WANT_NEXT"}, s.Steps[0].User.Intents)
	assert.Nil(t, s.Steps[0].Expect)
	assert.False(t, s.Close)
}

func TestParseScenario_ExpectedVisible(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: expected
description: "user expects the navigation buttons"
steps:
  - trigger: load
    app:
      mode: GUIDED
      elements: [NEXT_BUTTON]
      capabilities: [ACCEPT_NEXT]
    user:
      intents: [WANT_NEXT]
      expected_visible: [NEXT_BUTTON, PREV_BUTTON]
`))
	require.NoError(t, err)

	app, user := s.Steps[0].States()
	assert.Equal(t, []ir.ElementID{"NEXT_BUTTON", "PREV_BUTTON"}, user.ExpectedVisible.Sorted())
	assert.Equal(t, []ir.ElementID{"PREV_BUTTON"}, user.MissingExpected(app))

	_, user = mustParse(t, minimalScenario).Steps[0].States()
	assert.Nil(t, user.ExpectedVisible)
}

func TestParseScenario_ExplicitEmptyList(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: empty
description: "explicit empty list"
steps:
  - trigger: load
    app: { mode: GUIDED }
    expect:
      unsatisfied: []
`))
	require.NoError(t, err)
	require.NotNil(t, s.Steps[0].Expect)
	assert.NotNil(t, s.Steps[0].Expect.Unsatisfied)
	assert.Empty(t, s.Steps[0].Expect.Unsatisfied)
	assert.Nil(t, s.Steps[0].Expect.Unused)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nsteps: [{trigger: a, app: {mode: GUIDED}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps: [{trigger: a, app: {mode: GUIDED}}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: y\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing trigger",
			yaml:    "name: x\ndescription: y\nsteps: [{app: {mode: GUIDED}}]\n",
			wantErr: "steps[0]: trigger is required",
		},
		{
			name:    "missing mode",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a}]\n",
			wantErr: "steps[0]: app.mode is required",
		},
		{
			name:    "bad verdict",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}, verdict: MAYBE}]\n",
			wantErr: "unknown verdict",
		},
		{
			name:    "bad error code",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}, expect: {error: BOOM}}]\n",
			wantErr: "unknown error code",
		},
		{
			name:    "failing step with verdict",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}, verdict: MATCHES, expect: {error: MODELING_INCONSISTENCY}}]\n",
			wantErr: "cannot carry a verdict",
		},
		{
			name:    "bad pair",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}, expect: {satisfied: [WANT_NEXT]}}]\n",
			wantErr: "want INTENT<->CAPABILITY",
		},
		{
			name:    "bad started_at",
			yaml:    "name: x\ndescription: y\nstarted_at: yesterday\nsteps: [{trigger: a, app: {mode: GUIDED}}]\n",
			wantErr: "started_at",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}}]\nassertions: [{type: trace_count}]\n",
			wantErr: `unknown assertion type "trace_count"`,
		},
		{
			name:    "bug_at without seq",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}}]\nassertions: [{type: bug_at}]\n",
			wantErr: "seq is required for bug_at",
		},
		{
			name:    "verdict_count without verdict",
			yaml:    "name: x\ndescription: y\nsteps: [{trigger: a, app: {mode: GUIDED}}]\nassertions: [{type: verdict_count, count: 1}]\n",
			wantErr: "unknown verdict",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FileErrors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "free_text_recording", scenarios[0].Name)
	assert.Equal(t, "guided_navigation", scenarios[1].Name)
}

func TestLoadDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("name: b\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yml")
}
