package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/ir"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	IgnoreTimestamps bool
	IgnoreSessionID  bool
}

// DiffOutput is the JSON result of the diff command.
type DiffOutput struct {
	Equal       bool                `json:"equal"`
	Differences []export.Difference `json:"differences"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Compare two export documents transition by transition",
		Long: `Compare two export documents keyed by transition seq and report where
they diverge: session metadata, added or removed transitions, and changed
fields of transitions present in both.

Use --ignore-timestamps and --ignore-session-id to compare two runs of the
same walk-through recorded at different times.

Exit codes:
  0 - Documents are equivalent
  1 - Differences found
  2 - Command error (file not found, invalid document)

Examples:
  portmatch diff ./monday.json ./tuesday.json --ignore-timestamps --ignore-session-id`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.IgnoreTimestamps, "ignore-timestamps", false, "skip startedAt and all timestamps")
	cmd.Flags().BoolVar(&opts.IgnoreSessionID, "ignore-session-id", false, "skip sessionId")

	return cmd
}

func runDiff(opts *DiffOptions, pathA, pathB string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := readDocument(formatter, pathA)
	if err != nil {
		return err
	}
	b, err := readDocument(formatter, pathB)
	if err != nil {
		return err
	}

	diffs := export.Diff(a, b, export.Options{
		IgnoreTimestamps: opts.IgnoreTimestamps,
		IgnoreSessionID:  opts.IgnoreSessionID,
	})
	out := DiffOutput{Equal: len(diffs) == 0, Differences: diffs}
	if out.Differences == nil {
		out.Differences = []export.Difference{}
	}

	if formatter.IsJSON() {
		if err := formatter.Result(out.Equal, out, ErrCodeDocumentsDiffer,
			fmt.Sprintf("%d difference(s)", len(diffs))); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, d := range diffs {
			fmt.Fprintf(w, "  %s\n", d)
		}
		if out.Equal {
			fmt.Fprintln(w, "✓ documents are equivalent")
		} else {
			fmt.Fprintf(w, "✗ %d difference(s)\n", len(diffs))
		}
	}

	if !out.Equal {
		return NewExitError(ExitFailure, fmt.Sprintf("%d difference(s)", len(diffs)))
	}
	return nil
}

// readDocument reads and decodes an export document file.
func readDocument(formatter *OutputFormatter, path string) (ir.Document, error) {
	data, err := readFile(path)
	if err != nil {
		return ir.Document{}, err
	}
	doc, err := export.Decode(data)
	if err != nil {
		return ir.Document{}, formatter.Fail(ExitCommandError, ErrCodeParseFailed, fmt.Sprintf("%s: %v", path, err), nil)
	}
	return doc, nil
}
