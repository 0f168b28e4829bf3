package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// RunSummary is one journaled run as listed by history.
type RunSummary struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Success bool   `json:"success"`
	Pulls   int    `json:"pulls"`
	Sink    string `json:"sink"`
	Error   string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs",
		Long: `List the most recent runs recorded in the run journal, oldest first.

Examples:
  cipherflow history --db ./runs.db
  cipherflow history --db ./runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := openJournal(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			ID:      r.ID,
			Seq:     r.Seq,
			Success: r.Success,
			Pulls:   r.Pulls,
			Sink:    ir.Describe(r.Sink),
			Error:   r.Error,
		}
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs journaled yet.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tRUN\tSTATUS\tPULLS\tSINK")
	for _, s := range summaries {
		status := "ok"
		if !s.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", s.Seq, s.ID, status, s.Pulls, s.Sink)
	}
	return w.Flush()
}

// openJournal opens an existing run journal. Unlike run, reading commands
// never create the database.
func openJournal(opts *RootOptions) (*store.Store, error) {
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "no run journal: set --db or "+EnvDatabase)
	}
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
