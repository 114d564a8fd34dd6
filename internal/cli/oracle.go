package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/harness"
)

// OracleOptions holds flags for the oracle command.
type OracleOptions struct {
	*RootOptions
	Out      string
	Database string

	// Input overrides the operator's terminal (for testing).
	Input io.Reader
	// NewOracle overrides how the session oracle is built (for testing).
	NewOracle func(opts ...engine.Option) *engine.Oracle
}

// OracleOutput is the JSON result of the oracle command.
type OracleOutput struct {
	SessionID   string          `json:"sessionId"`
	Transitions int             `json:"transitions"`
	Bugs        int             `json:"bugs"`
	Rejected    []string        `json:"rejected,omitempty"`
	Output      string          `json:"output,omitempty"`
	Archived    bool            `json:"archived"`
	Export      json.RawMessage `json:"export,omitempty"`
}

// NewOracleCommand creates the oracle command.
func NewOracleCommand(rootOpts *RootOptions) *cobra.Command {
	return newOracleCommand(&OracleOptions{RootOptions: rootOpts})
}

func newOracleCommand(opts *OracleOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle <scenario.yaml>",
		Short: "Walk a scenario's transitions and ask the operator for verdicts",
		Long: `Start a live session, record each scenario step as a transition and ask
the operator whether the interface matched. Verdicts written in the
scenario are ignored; the operator's answers are recorded instead.

Answer y (matches) or n (mismatch, followed by a note). Ending input
stops asking and closes the session with the remaining transitions
unvalidated. The document goes where the run command would put it.

Exit codes:
  0 - Session exported, no bugs reported
  1 - The operator reported at least one mismatch
  2 - Command error

Example:
  portmatch oracle ./scenarios/guided.yaml --db ./portmatch.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOracle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the export document to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the session in this SQLite database")

	return cmd
}

func runOracle(opts *OracleOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParseFailed, err.Error(), nil)
	}
	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}
	if ok, err := v.Satisfies(scenario.Vocabulary); err != nil || !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: scenario %s requires vocabulary %s, have %s",
			ErrCodeVocabulary, scenario.Name, scenario.Vocabulary, v.Version))
	}

	st, err := opts.openStore(opts.databasePath(opts.Database), false)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	newOracle := opts.NewOracle
	if newOracle == nil {
		newOracle = func(o ...engine.Option) *engine.Oracle { return engine.NewOracle(v, o...) }
	}
	oracle := newOracle(engine.WithLogger(logger))
	sessionID, err := oracle.Enable()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	logger.Info("session started", "session", sessionID, "scenario", scenario.Name)

	// Prompts never share stdout with a JSON response.
	promptOut := cmd.OutOrStdout()
	if formatter.IsJSON() {
		promptOut = cmd.ErrOrStderr()
	}
	in := opts.Input
	if in == nil {
		in = cmd.InOrStdin()
	}
	prompter := engine.NewLinePrompter(in, promptOut)

	out := OracleOutput{SessionID: sessionID}
	for i, step := range scenario.Steps {
		app, user := step.States()
		seq, err := oracle.RecordTransition(step.Trigger, app, user)
		if err != nil {
			msg := fmt.Sprintf("steps[%d] %s: %v", i, step.Trigger, err)
			out.Rejected = append(out.Rejected, msg)
			fmt.Fprintf(promptOut, "✗ %s\n", msg)
			continue
		}
		for _, gap := range oracle.LastGaps() {
			fmt.Fprintf(promptOut, "  gap: %s\n", gap.Message)
		}

		if _, err := oracle.AskVerdict(ctx, prompter); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.Canceled) {
				logger.Info("operator stopped answering", "seq", seq)
				break
			}
			return WrapExitError(ExitCommandError, "verdict failed", err)
		}
	}

	if err := oracle.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close session", err)
	}
	data, err := oracle.Export()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export session", err)
	}
	doc, err := oracle.Document()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export session", err)
	}
	out.Transitions = len(doc.Transitions)
	out.Bugs = len(doc.Bugs)
	out.Output = opts.exportPath(opts.Out, sessionID)

	if out.Output != "" {
		if err := writeExport(out.Output, data); err != nil {
			return err
		}
	}
	// An interrupt must not lose the session.
	if out.Archived, err = opts.archive(context.WithoutCancel(ctx), st, data); err != nil {
		return err
	}

	if formatter.IsJSON() {
		if out.Output == "" {
			out.Export = data
		}
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if out.Output == "" {
			fmt.Fprintln(w, string(data))
			w = cmd.ErrOrStderr()
		}
		fmt.Fprintf(w, "\nSession %s: %d transitions, %d bugs\n", out.SessionID, out.Transitions, out.Bugs)
		for _, b := range doc.Bugs {
			fmt.Fprintf(w, "  bug at %d: %s\n", b.Seq, b.Description)
		}
		if out.Output != "" {
			fmt.Fprintf(w, "  export: %s\n", out.Output)
		}
	}

	if out.Bugs > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d bug(s) reported", out.Bugs))
	}
	return nil
}
