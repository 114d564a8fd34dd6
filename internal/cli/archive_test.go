package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/store"
)

func TestSessions(t *testing.T) {
	_, dbPath := recordGuided(t, t.TempDir())

	stdout, _, err := execute(t, NewSessionsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "cli-guided  2025-03-01T08:00:00Z")
	assert.Contains(t, stdout, "2 transitions  1 bugs")

	stdout, _, err = execute(t, NewSessionsCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []store.SessionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "cli-guided", resp.Data[0].SessionID)
	assert.Len(t, resp.Data[0].Digest, 64)
}

func TestSessions_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	stdout, _, err := execute(t, NewSessionsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No sessions archived.")
}

func TestArchive_NoDatabase(t *testing.T) {
	commands := map[string]func(*RootOptions) *cobra.Command{
		"sessions": NewSessionsCommand,
		"bugs":     NewBugsCommand,
	}
	for name, newCmd := range commands {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, newCmd(&RootOptions{Format: "text"}))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), ErrCodeDatabase)
		})
	}
}

func TestBugs(t *testing.T) {
	dir := t.TempDir()
	_, dbPath := recordGuided(t, dir)

	free := writeFile(t, dir, "free_text.yaml", freeTextScenario)
	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--out", filepath.Join(dir, "free.json"), free)
	require.NoError(t, err)

	stdout, _, err := execute(t, NewBugsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "cli-guided  seq=2  click_jump: jump selector ignores input\n", stdout)

	stdout, _, err = execute(t, NewBugsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "cli-free-text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No bugs.")

	stdout, _, err = execute(t, NewBugsCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--session", "cli-guided")
	require.NoError(t, err)
	var resp struct {
		Data []store.BugRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(2), resp.Data[0].Seq)
}

func TestShow(t *testing.T) {
	_, dbPath := recordGuided(t, t.TempDir())

	stdout, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath, "cli-guided")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[1] load_list"))
	assert.Contains(t, lines[0], "MATCHES")
	assert.True(t, strings.HasPrefix(lines[1], "[2] click_jump"))
	assert.Contains(t, lines[1], "MISMATCH")
	assert.Equal(t, "     note: jump selector ignores input", lines[2])
}

func TestShow_VerdictFilter(t *testing.T) {
	_, dbPath := recordGuided(t, t.TempDir())

	stdout, _, err := execute(t, NewShowCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--verdict", "MISMATCH", "cli-guided")
	require.NoError(t, err)

	var resp struct {
		Data []store.TransitionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "click_jump", resp.Data[0].Trigger)
	assert.Equal(t, "GUIDED", resp.Data[0].Mode)

	_, _, err = execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--verdict", "PERHAPS", "cli-guided")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShow_Raw(t *testing.T) {
	_, dbPath := recordGuided(t, t.TempDir())

	stdout, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--raw", "cli-guided")
	require.NoError(t, err)

	doc, err := export.Decode([]byte(strings.TrimSpace(stdout)))
	require.NoError(t, err)
	assert.Equal(t, "cli-guided", doc.SessionID)
}

func TestShow_NotFound(t *testing.T) {
	_, dbPath := recordGuided(t, t.TempDir())

	stdout, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]: session not found: missing")
}
