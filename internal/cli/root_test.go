package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guidedScenario records a matching step and a reported mismatch.
const guidedScenario = `name: guided
description: "next works, jump does not"
vocabulary: "^1.0"
session_id: cli-guided
started_at: "2025-03-01T08:00:00Z"
steps:
  - trigger: load_list
    app:
      mode: GUIDED
      elements: [NEXT_BUTTON]
      capabilities: [ACCEPT_NEXT, ACCEPT_PREV]
    user:
      intents: [WANT_NEXT]
    verdict: MATCHES
    expect:
      satisfied: ["WANT_NEXT<->ACCEPT_NEXT"]
      unused: [ACCEPT_PREV]
  - trigger: click_jump
    app:
      mode: GUIDED
      elements: [JUMP_SELECTOR]
      capabilities: [ACCEPT_NEXT]
    user:
      intents: [WANT_JUMP]
    verdict: MISMATCH
    note: "jump selector ignores input"
close: true
assertions:
  - type: transition_count
    count: 2
  - type: bug_count
    count: 1
`

// freeTextScenario passes with no bugs.
const freeTextScenario = `name: free_text
vocabulary: "^1.0"
session_id: cli-free-text
started_at: "2025-03-02T08:00:00Z"
steps:
  - trigger: type
    app:
      mode: FREE_TEXT
      capabilities: [ACCEPT_TEXT]
    user:
      intents: [WANT_TEXT]
    verdict: MATCHES
close: true
assertions:
  - type: bug_count
    count: 0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "portmatch", cmd.Use)
	assert.Contains(t, cmd.Long, "conformance oracle")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"vocab", "match", "run", "test", "oracle", "replay", "diff", "sessions", "bugs", "show", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("vocab"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"vocab", []string{"check", "source"}},
		{"run", []string{"out", "db"}},
		{"test", []string{"update", "filter"}},
		{"oracle", []string{"out", "db"}},
		{"replay", []string{"db", "session"}},
		{"diff", []string{"ignore-timestamps", "ignore-session-id"}},
		{"bugs", []string{"db", "session"}},
		{"show", []string{"db", "verdict", "raw"}},
		{"serve", []string{"listen", "db", "auto-capture", "practice"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, f := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(f), "--%s", f)
			}
		})
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), "--format", "xml", "vocab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "archive.db")
	scenario := writeFile(t, dir, "guided.yaml", guidedScenario)
	cfgPath := writeFile(t, dir, "portmatch.yaml", "database: "+dbPath+"\nexport_dir: "+filepath.Join(dir, "exports")+"\nlog_level: warn\n")

	_, _, err := execute(t, NewRootCommand(), "--config", cfgPath, "run", scenario)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "exports", "cli-guided.json"))

	stdout, _, err := execute(t, NewRootCommand(), "--config", cfgPath, "sessions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cli-guided")
}

func TestRootCommand_BadConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "portmatch.yaml", "log_level: loud\n")

	_, _, err := execute(t, NewRootCommand(), "--config", cfgPath, "vocab")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRootCommand_VocabularyConstraint(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "portmatch.yaml", "vocabulary_constraint: \">= 2.0\"\n")

	_, _, err := execute(t, NewRootCommand(), "--config", cfgPath, "vocab")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not satisfy >= 2.0")
}
