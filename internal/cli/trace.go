package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Block int // only show pulls of this block; -1 for all
}

// TraceEvent is one block pull in the trace timeline.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Block   int      `json:"block"`
	Name    string   `json:"name"`
	Outputs []string `json:"outputs"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID       string       `json:"run_id"`
	Success     bool         `json:"success"`
	Sink        string       `json:"sink"`
	Error       string       `json:"error,omitempty"`
	Timeline    []TraceEvent `json:"timeline"`
	Diagnostics []string     `json:"diagnostics"`
	Stats       TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Pulls  int            `json:"pulls"`
	Blocks int            `json:"blocks"`
	ByName map[string]int `json:"by_name"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the pulls of a journaled run",
		Long: `Show every block pull of a journaled run in the order it happened,
with the outputs each pull produced and the diagnostics of the run.

Examples:
  cipherflow trace --db ./runs.db 0190a3c4-...
  cipherflow trace --db ./runs.db 0190a3c4-... --block 2
  cipherflow trace --db ./runs.db 0190a3c4-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Block, "block", -1, "only show pulls of this block id")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	st, err := openJournal(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(context.Background(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("no run %q in %s", runID, opts.Database))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := buildTrace(run, opts.Block)
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).encode(result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace converts a journaled run, keeping only pulls of block when it
// is not negative. Stats always cover the whole run.
func buildTrace(run store.Run, block int) TraceResult {
	result := TraceResult{
		RunID:       run.ID,
		Success:     run.Success,
		Sink:        ir.Describe(run.Sink),
		Error:       run.Error,
		Timeline:    []TraceEvent{},
		Diagnostics: run.Diagnostics,
		Stats:       TraceStats{Pulls: run.Pulls, ByName: map[string]int{}},
	}
	if result.Diagnostics == nil {
		result.Diagnostics = []string{}
	}

	seen := map[int]bool{}
	for _, step := range run.Trace {
		seen[step.Block] = true
		result.Stats.ByName[step.Name]++
		if block >= 0 && step.Block != block {
			continue
		}
		outputs := make([]string, len(step.Outputs))
		for i, v := range step.Outputs {
			outputs[i] = ir.Describe(v)
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     step.Seq,
			Block:   step.Block,
			Name:    step.Name,
			Outputs: outputs,
		})
	}
	result.Stats.Blocks = len(seen)
	return result
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	status := "succeeded"
	if !result.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "Run %s %s after %d pull(s)\n", result.RunID, status, result.Stats.Pulls)
	fmt.Fprintf(w, "Sink: %s\n", result.Sink)
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Timeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no pulls)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] block %d %s -> %s\n", ev.Seq, ev.Block, ev.Name, strings.Join(ev.Outputs, ", "))
	}

	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Stats: %d block(s) pulled\n", result.Stats.Blocks)
		for _, name := range sortedKeys(result.Stats.ByName) {
			fmt.Fprintf(w, "  %s: %d\n", name, result.Stats.ByName[name])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
