package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.yaml", `app:
  mode: GUIDED
  elements: [NEXT_BUTTON, SPARKLE_BUTTON]
  capabilities: [ACCEPT_NEXT, ACCEPT_PREV]
user:
  intents: [WANT_NEXT, WANT_JUMP]
`)

	stdout, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "satisfied    WANT_NEXT<->ACCEPT_NEXT")
	assert.Contains(t, stdout, "unsatisfied  WANT_JUMP")
	assert.Contains(t, stdout, "unused       ACCEPT_PREV")
	assert.Contains(t, stdout, "gap          element SPARKLE_BUTTON")
}

func TestMatch_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.yaml", `app:
  mode: FREE_TEXT
  capabilities: [ACCEPT_TEXT]
user:
  intents: [WANT_TEXT, WANT_TELEPORT]
`)

	stdout, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   MatchOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"WANT_TEXT<->ACCEPT_TEXT"}, resp.Data.Satisfied)
	assert.Equal(t, []string{"WANT_TELEPORT"}, resp.Data.UnsatisfiedIntents)
	assert.Equal(t, []string{}, resp.Data.UnusedCapabilities)
	assert.Equal(t, []GapEntry{{Kind: "intent", ID: "WANT_TELEPORT"}}, resp.Data.Gaps)
}

func TestMatch_ModelingInconsistency(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.yaml", `app:
  mode: FREE_TEXT
  capabilities: [ACCEPT_NEXT]
`)

	stdout, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [MODELING_INCONSISTENCY]")
	assert.Contains(t, stdout, "ACCEPT_NEXT is not legal in mode FREE_TEXT")
}

func TestMatch_UnknownMode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.yaml", "app:\n  mode: KARAOKE\n")

	_, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "MODELING_INCONSISTENCY")
}

func TestMatch_UnknownField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.yaml", "app:\n  mode: GUIDED\n  buttons: [NEXT]\n")

	_, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeParseFailed)
}

func TestMatch_MissingFile(t *testing.T) {
	_, _, err := execute(t, NewMatchCommand(&RootOptions{Format: "text"}), "/nonexistent/state.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
