package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Out      string
	Database string
}

// RunOutput is the JSON result of the run command.
type RunOutput struct {
	Scenario    string   `json:"scenario"`
	Pass        bool     `json:"pass"`
	Errors      []string `json:"errors,omitempty"`
	SessionID   string   `json:"sessionId"`
	Transitions int      `json:"transitions"`
	Bugs        int      `json:"bugs"`
	Digest      string   `json:"digest"`
	Output      string   `json:"output,omitempty"`
	Archived    bool     `json:"archived"`

	// Export is the document itself when it was not written to a file.
	Export json.RawMessage `json:"export,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario through the oracle and export the session",
		Long: `Run one YAML scenario through a fresh oracle with a deterministic clock
and session id, check its expectations and assertions, and export the
session document.

The document is written to --out, else to <export_dir>/<session>.json when
the config file sets export_dir, else to stdout (the summary then goes to
stderr). With --db (or database in the config file) the document is also
archived.

Exit codes:
  0 - Scenario passed
  1 - Expectations or assertions failed
  2 - Command error (scenario not found, vocabulary mismatch, etc.)

Examples:
  portmatch run ./scenarios/guided.yaml --out ./session.json
  portmatch run ./scenarios/guided.yaml --db ./portmatch.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the export document to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the session in this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParseFailed, err.Error(), nil)
	}
	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}

	st, err := opts.openStore(opts.databasePath(opts.Database), false)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	formatter.VerboseLog("Running scenario %s (%d steps)", scenario.Name, len(scenario.Steps))
	result, err := harness.Run(scenario, harness.Options{Vocabulary: v, Logger: opts.logger()})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("scenario %s: %v", scenario.Name, err), nil)
	}

	out := RunOutput{
		Scenario:    scenario.Name,
		Pass:        result.Pass,
		Errors:      result.Errors,
		SessionID:   result.SessionID,
		Transitions: result.Transitions,
		Bugs:        result.Bugs,
		Digest:      export.Digest(result.Export),
		Output:      opts.exportPath(opts.Out, result.SessionID),
	}

	if out.Output != "" {
		if err := writeExport(out.Output, result.Export); err != nil {
			return err
		}
	}
	if out.Archived, err = opts.archive(ctx, st, result.Export); err != nil {
		return err
	}

	if formatter.IsJSON() {
		if out.Output == "" {
			out.Export = result.Export
		}
		if err := formatter.Result(result.Pass, out, ErrCodeScenarioFailed, "scenario failed"); err != nil {
			return err
		}
	} else {
		summary := formatter.Writer
		if out.Output == "" {
			fmt.Fprintln(formatter.Writer, string(result.Export))
			summary = formatter.GetErrWriter()
		}
		printRunSummary(summary, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printRunSummary(w io.Writer, out RunOutput) {
	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: session %s, %d transitions, %d bugs\n",
		mark, out.Scenario, out.SessionID, out.Transitions, out.Bugs)
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if out.Output != "" {
		fmt.Fprintf(w, "  export: %s\n", out.Output)
	}
	if out.Archived {
		fmt.Fprintln(w, "  archived")
	}
}
