package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database string // run journal; empty disables journaling
	Library  string // extra CUE block library directory
	Wasm     string // native module; empty uses the built-in one
	MaxPulls int    // 0 uses the engine default
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cipherflow CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(LoadConfig())
}

func newRootCommand(cfg Config) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cipherflow",
		Short: "cipherflow - dataflow graphs of cryptographic blocks",
		Long: `Build and resolve demand-driven dataflow graphs of cryptographic blocks.

A graph is resolved by pulling a value into its Outputs/Bob block; every
block the sink depends on is resolved as often as it is demanded.

Flag defaults are read from the environment (and a .env file):
  CIPHERFLOW_DB, CIPHERFLOW_LIBRARY, CIPHERFLOW_WASM, CIPHERFLOW_MAX_PULLS`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.MaxPulls < 0 {
				return fmt.Errorf("invalid --max-pulls %d: must not be negative", opts.MaxPulls)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Database, "db", cfg.Database, "path to SQLite run journal")
	pf.StringVar(&opts.Library, "library", cfg.Library, "directory of additional CUE block definitions")
	pf.StringVar(&opts.Wasm, "wasm", cfg.Wasm, "path to a WebAssembly native module")
	pf.IntVar(&opts.MaxPulls, "max-pulls", cfg.MaxPulls, "pull quota per run (0 for the default)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewBlocksCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
