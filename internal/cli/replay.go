package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [export.json]",
		Short: "Recompute every match of an exported session",
		Long: `Replay an export document: recompute each transition's match from its
stored snapshots and re-export the session.

With the vocabulary the session was recorded under, every match must
reproduce and the re-export must be byte-identical. With a changed
vocabulary (--vocab) the report shows which transitions the change
affects.

The document is read from the file argument, or from the archive with
--db and --session.

Exit codes:
  0 - Every match reproduced and the re-export is identical
  1 - Replay diverged
  2 - Command error (file or session not found, invalid document, etc.)

Examples:
  portmatch replay ./session.json
  portmatch replay --db ./portmatch.db --session 0190f0e4-...
  portmatch replay ./session.json --vocab ./next.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "archived session to replay")

	return cmd
}

func runReplay(opts *ReplayOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var data []byte
	switch {
	case len(args) == 1 && opts.Session != "":
		return NewExitError(ExitCommandError, "pass either an export file or --session, not both")
	case len(args) == 1:
		var err error
		if data, err = readFile(args[0]); err != nil {
			return err
		}
	case opts.Session != "":
		var err error
		if data, err = opts.readArchived(ctx, opts.Database, opts.Session); err != nil {
			return err
		}
	default:
		return NewExitError(ExitCommandError, "nothing to replay: pass an export file or --session")
	}

	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}

	report, err := engine.Replay(v, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParseFailed, err.Error(), nil)
	}
	opts.logger().Debug("replay finished", "session", report.SessionID, "mismatches", len(report.Mismatches))

	if formatter.IsJSON() {
		if err := formatter.Result(report.OK(), report, ErrCodeReplayDiverged, "replay diverged"); err != nil {
			return err
		}
	} else {
		printReplayReport(formatter, report)
	}

	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("replay of %s diverged", report.SessionID))
	}
	return nil
}

// readArchived loads an archived export document.
func (o *RootOptions) readArchived(ctx context.Context, dbFlag, sessionID string) ([]byte, error) {
	st, err := o.openStore(o.databasePath(dbFlag), true)
	if err != nil {
		return nil, err
	}
	defer o.closeStore(st)

	data, err := st.ReadSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: session not found: %s", ErrCodeNotFound, sessionID))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to read session", err)
	}
	return data, nil
}

func printReplayReport(formatter *OutputFormatter, r *engine.ReplayReport) {
	w := formatter.Writer
	fmt.Fprintf(w, "Session %s: %d transitions, recorded with vocabulary %s, replayed with %s\n",
		r.SessionID, r.Transitions, r.VocabularyVersion, r.ReplayedWith)
	formatter.VerboseLog("digest %s", r.Digest)

	if len(r.Mismatches) == 0 {
		fmt.Fprintln(w, "✓ all matches reproduced")
	}
	for _, mm := range r.Mismatches {
		if mm.Error != "" {
			fmt.Fprintf(w, "✗ seq=%d %s: %s\n", mm.Seq, mm.Trigger, mm.Error)
			continue
		}
		fmt.Fprintf(w, "✗ seq=%d %s: match changed\n", mm.Seq, mm.Trigger)
		fmt.Fprintf(w, "  stored:     satisfied=%v unsatisfied=%v unused=%v\n",
			mm.Stored.Satisfied, mm.Stored.UnsatisfiedIntents, mm.Stored.UnusedCapabilities)
		fmt.Fprintf(w, "  recomputed: satisfied=%v unsatisfied=%v unused=%v\n",
			mm.Recomputed.Satisfied, mm.Recomputed.UnsatisfiedIntents, mm.Recomputed.UnusedCapabilities)
	}

	if r.Identical {
		fmt.Fprintln(w, "✓ re-export is byte-identical")
	} else {
		fmt.Fprintln(w, "✗ re-export differs from the input bytes")
	}
}
