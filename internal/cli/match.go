package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/harness"
	"github.com/roach88/portmatch/internal/ir"
)

// MatchInput is the YAML state pair read by the match command. It uses the
// scenario step layout:
//
//	app:
//	  mode: GUIDED
//	  elements: [NEXT_BUTTON]
//	  capabilities: [ACCEPT_NEXT]
//	user:
//	  intents: [WANT_NEXT]
type MatchInput struct {
	App  harness.AppSpec  `yaml:"app"`
	User harness.UserSpec `yaml:"user"`
}

// MatchOutput is the result of the match command.
type MatchOutput struct {
	Satisfied          []string   `json:"satisfied"`
	UnsatisfiedIntents []string   `json:"unsatisfiedIntents"`
	UnusedCapabilities []string   `json:"unusedCapabilities"`
	Gaps               []GapEntry `json:"gaps"`
}

// GapEntry is a vocabulary gap found while matching.
type GapEntry struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <state.yaml>",
		Short: "Match one application/user state pair",
		Long: `Validate a state pair against the vocabulary and resolve every intent
through its port.

Unknown intents, capabilities and elements are reported as vocabulary gaps
and matching proceeds. A capability the mode does not allow, or an unknown
mode, is a modeling inconsistency.

Exit codes:
  0 - State pair matched (gaps are not failures)
  1 - Modeling inconsistency
  2 - Command error (file not found, malformed YAML, etc.)

Example:
  portmatch match ./state.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runMatch(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readFile(path)
	if err != nil {
		return err
	}
	var in MatchInput
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParseFailed, fmt.Sprintf("parse %s: %v", path, err), nil)
	}

	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}

	app, user := harness.Step{App: in.App, User: in.User}.States()
	eval, err := engine.NewMatcher(v).Evaluate(app, user)
	if err != nil {
		var e *ir.Error
		if errors.As(err, &e) {
			return formatter.Fail(ExitFailure, string(e.Code), e.Message, e.Details)
		}
		return WrapExitError(ExitCommandError, "match failed", err)
	}

	out := MatchOutput{
		Satisfied:          make([]string, len(eval.Result.Satisfied)),
		UnsatisfiedIntents: stringIDs(eval.Result.UnsatisfiedIntents),
		UnusedCapabilities: stringIDs(eval.Result.UnusedCapabilities),
		Gaps:               make([]GapEntry, len(eval.Gaps)),
	}
	for i, p := range eval.Result.Satisfied {
		out.Satisfied[i] = p.String()
	}
	for i, g := range eval.Gaps {
		out.Gaps[i] = GapEntry{Kind: g.Details["kind"], ID: g.Details["id"]}
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	for _, p := range out.Satisfied {
		fmt.Fprintf(w, "satisfied    %s\n", p)
	}
	for _, i := range out.UnsatisfiedIntents {
		fmt.Fprintf(w, "unsatisfied  %s\n", i)
	}
	for _, c := range out.UnusedCapabilities {
		fmt.Fprintf(w, "unused       %s\n", c)
	}
	for _, g := range out.Gaps {
		fmt.Fprintf(w, "gap          %s %s\n", g.Kind, g.ID)
	}
	return nil
}
