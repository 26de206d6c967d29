package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// SessionRuns is the output of history <session-id>.
type SessionRuns struct {
	SessionID string      `json:"session_id"`
	Runs      []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show recorded sessions and runs",
		Long: `Show the run log written by "resona run --db".

Without arguments every session is listed with its run count, pass count
and mean coherence. With a session id, that session's runs are listed in
order. Prompts are stored as digests, never as text.

Examples:
  resona history --db ./resona.db
  resona history --db ./resona.db 0190a5c2-7d4e-7b1a-9c3f-5e2d8a1b4c6d`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if len(args) == 0 {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return out.fail(ExitCommandError, ErrCodeDatabase, "failed to list sessions", err)
		}
		return out.Emit(sessions, func(w io.Writer) { writeSessions(w, sessions) })
	}

	runs, err := st.ReadSession(ctx, args[0])
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
	}
	if len(runs) == 0 {
		return out.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("no runs recorded for session %s", args[0]), nil)
	}
	res := SessionRuns{SessionID: args[0], Runs: runs}
	return out.Emit(res, func(w io.Writer) { writeRuns(w, runs) })
}

func writeSessions(w io.Writer, sessions []store.SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tKIND\tCREATED\tRUNS\tPASSED\tMEAN C")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\n",
			s.ID, s.Kind, s.CreatedAt.UTC().Format(time.RFC3339), s.Runs, s.Passed, s.MeanCoherence)
	}
	tw.Flush()
}

func writeRuns(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTOKENS\tK\tτ\tR\tC\tτ*\tGATE\tITERS\tPROMPT")
	for _, r := range runs {
		verdict := "blocked"
		if r.Passed {
			verdict = "passed"
		}
		digest := r.PromptDigest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.3f\t%.4f\t%.4f\t%.4f\t%s\t%d\t%s\n",
			r.Seq, r.TokenCount, r.Coupling, r.Threshold, r.OrderParameter,
			r.Coherence, r.AdaptiveThreshold, verdict, r.Iterations, digest)
	}
	tw.Flush()
}
