package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/testutil"
	"github.com/roach88/portmatch/internal/vocab"
)

// Options configures a run.
type Options struct {
	// Vocabulary defaults to vocab.Default().
	Vocabulary *vocab.Vocabulary

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Run replays a scenario against a fresh oracle and returns the result.
//
// Failed expectations and assertions are reported in Result.Errors. The
// returned error is reserved for runs that cannot proceed: a vocabulary
// that does not satisfy the scenario's constraint, or an export failure.
func Run(scenario *Scenario, opts Options) (*Result, error) {
	v := opts.Vocabulary
	if v == nil {
		v = vocab.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ok, err := v.Satisfies(scenario.Vocabulary)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("scenario %s requires vocabulary %s, have %s",
			scenario.Name, scenario.Vocabulary, v.Version)
	}

	var start time.Time
	if scenario.StartedAt != "" {
		start, err = time.Parse(time.RFC3339, scenario.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("started_at: %w", err)
		}
	}
	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = scenario.Name
	}

	oracle := engine.NewOracle(v,
		engine.WithNow(testutil.NewStepClock(start, time.Second).Now),
		engine.WithIDGenerator(testutil.NewFixedSessionID(sessionID)),
		engine.WithLogger(logger),
	)
	if _, err := oracle.Enable(); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		runStep(oracle, i, step, result)
	}

	if scenario.Close {
		if err := oracle.Close(); err != nil {
			return nil, err
		}
	}

	data, err := oracle.Export()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	doc, err := oracle.Document()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Export = data
	result.Document = doc
	result.SessionID = doc.SessionID
	result.Transitions = len(doc.Transitions)
	result.Bugs = len(doc.Bugs)

	for _, msg := range EvaluateAssertions(doc, scenario.Assertions) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"transitions", result.Transitions,
		"bugs", result.Bugs,
	)
	return result, nil
}

// runStep records one step, checks its expectations and submits its verdict.
func runStep(o *engine.Oracle, i int, step Step, result *Result) {
	app, user := step.States()
	seq, err := o.RecordTransition(step.Trigger, app, user)

	wantErr := ""
	if step.Expect != nil {
		wantErr = step.Expect.Error
	}
	switch {
	case err != nil && wantErr == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Trigger, err))
		return
	case err != nil:
		if got := string(ir.CodeOf(err)); got != wantErr {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", i, step.Trigger, wantErr, err))
		}
		return
	case wantErr != "":
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, transition %d was recorded", i, step.Trigger, wantErr, seq))
		return
	}

	if step.Expect != nil {
		s, err := o.Session()
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Trigger, err))
			return
		}
		got := s.Transitions[len(s.Transitions)-1].Match
		for _, msg := range checkMatch(got, *step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Trigger, msg))
		}
	}

	if step.Verdict == "" {
		return
	}
	verdict, err := ir.ParseVerdict(step.Verdict)
	if err == nil {
		err = o.SubmitVerdict(verdict, step.Note)
	}
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d] %s: submit verdict: %v", i, step.Trigger, err))
	}
}

// checkMatch compares a recorded match with the expected lists.
func checkMatch(got ir.MatchResult, want Expected) []string {
	var msgs []string

	if want.Satisfied != nil {
		pairs := make([]string, len(got.Satisfied))
		for i, p := range got.Satisfied {
			pairs[i] = p.String()
		}
		slices.Sort(pairs)
		expected := sortedCopy(want.Satisfied)
		if !slices.Equal(pairs, expected) {
			msgs = append(msgs, fmt.Sprintf("satisfied: expected %v, got %v", expected, pairs))
		}
	}
	if want.Unsatisfied != nil {
		if msg := compareIDs("unsatisfied", want.Unsatisfied, got.UnsatisfiedIntents); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	if want.Unused != nil {
		if msg := compareIDs("unused", want.Unused, got.UnusedCapabilities); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func compareIDs[T ~string](label string, want []string, got []T) string {
	expected := sortedCopy(want)
	actual := make([]string, len(got))
	for i, id := range got {
		actual[i] = string(id)
	}
	if slices.Equal(expected, actual) {
		return ""
	}
	return fmt.Sprintf("%s: expected %v, got %v", label, expected, actual)
}

// sortedCopy returns a sorted copy of s (equivalent to
// slices.Sorted(slices.Values(s)), which requires Go 1.23).
func sortedCopy(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}
