package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <scenario.yaml>",
		Short: "Check a graph before running it",
		Long: `Check the graph described by a scenario file without running it.

Reports unconnected required inputs, literals that do not parse, wires
whose formats cannot be coerced and cycles that have no default or
optional input to start from.

Exit codes:
  0 - No problems found
  1 - One or more problems found
  2 - Command error (scenario cannot be loaded, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ws, err := openWorkspace(opts, path, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer ws.Close()

	problems := ws.engine.Verify()
	formatter.VerboseLog("Verified %d block(s) of %s", len(ws.engine.Blocks()), ws.scenario.Name)

	if formatter.JSON() {
		if problems == nil {
			problems = []string{}
		}
		if err := formatter.Success(VerifyResult{Valid: len(problems) == 0, Problems: problems}); err != nil {
			return err
		}
	} else if len(problems) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No errors found! Run your project with 'run'")
	} else {
		printProblems(cmd, problems)
	}

	if len(problems) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("verify found %d problem(s)", len(problems)))
	}
	return nil
}

func printProblems(cmd *cobra.Command, problems []string) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✗ %d problem(s) found:\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
