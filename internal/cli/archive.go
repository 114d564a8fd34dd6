package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/store"
)

// ArchiveOptions holds flags shared by the archive browsing commands.
type ArchiveOptions struct {
	*RootOptions
	Database string
	Session  string // bugs: restrict to one session
	Verdict  string // show: restrict to one verdict
	Raw      bool   // show: print the stored document
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List archived sessions",
		Long: `List the sessions archived in the database, oldest first.

Example:
  portmatch sessions --db ./portmatch.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store) error {
				return listSessions(ctx, opts, st, cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	return cmd
}

// NewBugsCommand creates the bugs command.
func NewBugsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bugs",
		Short: "List archived bugs",
		Long: `List the bugs of archived sessions: every transition the operator marked
MISMATCH, with its note.

Examples:
  portmatch bugs --db ./portmatch.db
  portmatch bugs --db ./portmatch.db --session 0190f0e4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store) error {
				return listBugs(ctx, opts, st, cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only bugs of this session")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the transitions of an archived session",
		Long: `Show the transitions of an archived session in seq order.

Exit codes:
  0 - Session shown
  2 - Command error (session not found, database error)

Examples:
  portmatch show --db ./portmatch.db 0190f0e4-...
  portmatch show --db ./portmatch.db 0190f0e4-... --verdict MISMATCH
  portmatch show --db ./portmatch.db 0190f0e4-... --raw > session.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store) error {
				return showSession(ctx, opts, st, args[0], cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Verdict, "verdict", "", "only transitions with this verdict")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the archived export document")
	return cmd
}

// withStore opens the archive for the duration of fn.
func withStore(opts *ArchiveOptions, cmd *cobra.Command, fn func(context.Context, *store.Store) error) error {
	st, err := opts.openStore(opts.databasePath(opts.Database), true)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st)
}

func listSessions(ctx context.Context, opts *ArchiveOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to list sessions", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(sessions)
	}

	w := formatter.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions archived.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  vocab %s  %d transitions  %d bugs\n",
			s.SessionID, s.StartedAt, s.VocabularyVersion, s.Transitions, s.Bugs)
		formatter.VerboseLog("  %s digest %s engine %s", s.SessionID, s.Digest, s.EngineVersion)
	}
	return nil
}

func listBugs(ctx context.Context, opts *ArchiveOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	bugs, err := st.ListBugs(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to list bugs", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(bugs)
	}

	w := formatter.Writer
	if len(bugs) == 0 {
		fmt.Fprintln(w, "No bugs.")
		return nil
	}
	for _, b := range bugs {
		fmt.Fprintf(w, "%s  seq=%d  %s: %s\n", b.SessionID, b.Seq, b.Trigger, b.Description)
	}
	return nil
}

func showSession(ctx context.Context, opts *ArchiveOptions, st *store.Store, sessionID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := st.ReadSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "session not found: "+sessionID, nil)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to read session", err)
	}
	if opts.Raw {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	var verdict ir.Verdict
	if opts.Verdict != "" {
		if verdict, err = ir.ParseVerdict(opts.Verdict); err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
	}

	transitions, err := st.ListTransitions(ctx, sessionID, verdict)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to list transitions", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(transitions)
	}

	w := formatter.Writer
	for _, t := range transitions {
		fmt.Fprintf(w, "[%d] %-12s %-11s %s  %s\n", t.Seq, t.Trigger, t.Mode, t.Verdict, t.RecordedAt)
		if t.Note != nil {
			fmt.Fprintf(w, "     note: %s\n", *t.Note)
		}
		formatter.VerboseLog("     match: %s", t.Match)
	}
	return nil
}
