package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/testutil"
	"github.com/roach88/portmatch/internal/vocab"
)

// scriptedOracle returns oracle options that answer from input with a
// deterministic clock and session id.
func scriptedOracle(input string) *OracleOptions {
	return &OracleOptions{
		RootOptions: &RootOptions{Format: "text"},
		Input:       strings.NewReader(input),
		NewOracle: func(opts ...engine.Option) *engine.Oracle {
			opts = append(opts,
				engine.WithNow(testutil.NewStepClock(testutil.DefaultStart, time.Second).Now),
				engine.WithIDGenerator(testutil.NewFixedSessionID("operator-1")),
			)
			return engine.NewOracle(vocab.Default(), opts...)
		},
	}
}

func TestOracle_OperatorReportsBug(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "guided.yaml", guidedScenario)
	out := filepath.Join(dir, "operator.json")

	opts := scriptedOracle("y\nn\nnothing happens on jump\n")
	stdout, _, err := execute(t, newOracleCommand(opts), "--out", out, scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout, "[1] load_list  mode=GUIDED")
	assert.Contains(t, stdout, "What is wrong?")
	assert.Contains(t, stdout, "Session operator-1: 2 transitions, 1 bugs")
	assert.Contains(t, stdout, "bug at 2: nothing happens on jump")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := export.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "operator-1", doc.SessionID)
	require.Len(t, doc.Transitions, 2)
	assert.Equal(t, "MATCHES", doc.Transitions[0].Verdict)
	assert.Equal(t, "MISMATCH", doc.Transitions[1].Verdict, "the operator's answer wins over the scenario's")
}

func TestOracle_ScenarioVerdictsIgnored(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "guided.yaml", guidedScenario)
	out := filepath.Join(dir, "operator.json")

	_, _, err := execute(t, newOracleCommand(scriptedOracle("y\nyes\n")), "--out", out, scenario)
	require.NoError(t, err, "no bugs reported")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := export.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, doc.Bugs)
}

func TestOracle_EndOfInput(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "guided.yaml", guidedScenario)
	dbPath := filepath.Join(dir, "archive.db")

	opts := scriptedOracle("y\n")
	opts.Format = "json"
	stdout, stderr, err := execute(t, newOracleCommand(opts), "--db", dbPath, scenario)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Does the interface match?", "prompts stay off the JSON stream")

	var resp struct {
		Status string       `json:"status"`
		Data   OracleOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "operator-1", resp.Data.SessionID)
	assert.Equal(t, 2, resp.Data.Transitions)
	assert.Zero(t, resp.Data.Bugs)
	assert.True(t, resp.Data.Archived)

	doc, err := export.Decode(resp.Data.Export)
	require.NoError(t, err)
	assert.Equal(t, "UNVALIDATED", doc.Transitions[1].Verdict)
}

func TestOracle_RejectedStep(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(freeTextScenario, "capabilities: [ACCEPT_TEXT]", "capabilities: [ACCEPT_NEXT]", 1)
	scenario := writeFile(t, dir, "bad.yaml", bad)

	stdout, _, err := execute(t, newOracleCommand(scriptedOracle("")), "--out", filepath.Join(dir, "x.json"), scenario)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✗ steps[0] type")
	assert.Contains(t, stdout, "MODELING_INCONSISTENCY")
	assert.Contains(t, stdout, "Session operator-1: 0 transitions, 0 bugs")
}

func TestOracle_VocabularyMismatch(t *testing.T) {
	needsTwo := strings.Replace(guidedScenario, `vocabulary: "^1.0"`, `vocabulary: "^2.0"`, 1)
	scenario := writeFile(t, t.TempDir(), "guided.yaml", needsTwo)

	_, _, err := execute(t, newOracleCommand(scriptedOracle("")), scenario)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeVocabulary)
}

// stalledInput cancels its context on the first read and then blocks until
// the pipe is closed, like an operator who walked away mid-question.
type stalledInput struct {
	once   sync.Once
	cancel context.CancelFunc
	r      io.Reader
}

func (s *stalledInput) Read(p []byte) (int, error) {
	s.once.Do(s.cancel)
	return s.r.Read(p)
}

func TestOracle_InterruptedWhileWaiting(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "guided.yaml", guidedScenario)
	out := filepath.Join(dir, "operator.json")

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := scriptedOracle("")
	opts.Input = &stalledInput{cancel: cancel, r: pr}
	cmd := newOracleCommand(opts)
	cmd.SetContext(ctx)

	stdout, _, err := execute(t, cmd, "--out", out, scenario)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session operator-1: 1 transitions, 0 bugs")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := export.Decode(data)
	require.NoError(t, err)
	require.Len(t, doc.Transitions, 1)
	assert.Equal(t, "UNVALIDATED", doc.Transitions[0].Verdict)
}
