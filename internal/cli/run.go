package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/engine"
	"github.com/roach88/cipherflow/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Alice      string // overrides the message of every Inputs/Alice block
	SkipVerify bool
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	RunID       string   `json:"run_id,omitempty"`
	Success     bool     `json:"success"`
	Sink        string   `json:"sink"`
	Message     string   `json:"message"`
	Pulls       int      `json:"pulls"`
	Diagnostics []string `json:"diagnostics"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Resolve a graph and print what Bob received",
		Long: `Build the graph described by a scenario file and resolve it.

The graph is verified first; a graph with problems is not run unless
--skip-verify is given. Diagnostics reported by blocks are printed as
they arrive, followed by the message Bob received.

With --db every run is journaled and can be inspected with the history
and trace commands.

Examples:
  cipherflow run ./scenarios/hello.yaml
  cipherflow run ./scenarios/hello.yaml --alice "ATTACK AT DAWN"
  cipherflow run --db ./runs.db --wasm ./std.wasm ./scenarios/aes.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Alice, "alice", "", "message Alice sends (overrides the scenario)")
	cmd.Flags().BoolVar(&opts.SkipVerify, "skip-verify", false, "run even when verify reports problems")

	return cmd
}

func runGraph(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ws, err := openWorkspace(opts.RootOptions, path, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer ws.Close()

	eng := ws.engine
	if cmd.Flags().Changed("alice") {
		if err := setAlice(eng, opts.Alice); err != nil {
			return WrapExitError(ExitCommandError, "invalid --alice message", err)
		}
		formatter.VerboseLog("Alice will send the message: %s", opts.Alice)
	}

	if problems := eng.Verify(); len(problems) > 0 {
		if !opts.SkipVerify {
			if formatter.JSON() {
				_ = formatter.Error(ErrCodeVerifyFailed, "graph has problems", problems)
			} else {
				printProblems(cmd, problems)
			}
			return NewExitError(ExitFailure, fmt.Sprintf("verify found %d problem(s)", len(problems)))
		}
		for _, p := range problems {
			formatter.VerboseLog("verify: %s", p)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := func(msg string) {
		if !formatter.JSON() {
			fmt.Fprintln(cmd.OutOrStdout(), msg)
		}
	}
	res, runErr := eng.ResolveGraph(ctx, report)

	out := RunOutput{Sink: ir.Describe(nil), Message: FormatSink(nil), Diagnostics: []string{}}
	if res != nil {
		out.RunID = res.RunID
		out.Success = res.Success && runErr == nil
		out.Sink = ir.Describe(res.Sink)
		out.Message = FormatSink(res.Sink)
		out.Pulls = res.Pulls
		if res.Diagnostics != nil {
			out.Diagnostics = res.Diagnostics
		}
	}

	if runErr != nil {
		code := ErrCodeRunFailed
		var rerr *engine.RuntimeError
		if errors.As(runErr, &rerr) {
			code = string(rerr.Code)
		}
		if formatter.JSON() {
			_ = formatter.Error(code, runErr.Error(), out)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Error [%s]: %v\n", code, runErr)
			fmt.Fprintln(cmd.OutOrStdout(), "Project failed, verify it with command 'verify'.")
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Message)
	if out.RunID != "" {
		formatter.VerboseLog("Run %s journaled after %d pulls", out.RunID, out.Pulls)
	}
	return nil
}

// setAlice sets msg as the literal of every source block.
func setAlice(eng *engine.Engine, msg string) error {
	found := false
	for _, id := range eng.Blocks() {
		def, ok := eng.Definition(id)
		if !ok || def.Kind != block.KindSource {
			continue
		}
		if err := def.ValidateLiteral(msg); err != nil {
			return err
		}
		if err := eng.SetLiteral(id, msg); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return fmt.Errorf("graph has no %s block", block.SourceID)
	}
	return nil
}

// Error codes for failures that carry no runtime error code.
const (
	ErrCodeVerifyFailed = "VERIFY_FAILED"
	ErrCodeRunFailed    = "RUN_FAILED"
)
