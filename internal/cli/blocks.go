package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/ir"
)

// BlocksOptions holds flags for the blocks command.
type BlocksOptions struct {
	*RootOptions
	Package string // only list this package
	Output  string // write declarations as JSON to this file
}

// BlockInfo describes one library block.
type BlockInfo struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Description string     `json:"description,omitempty"`
	Operation   string     `json:"operation,omitempty"`
	Inputs      []PortInfo `json:"inputs"`
	Outputs     []PortInfo `json:"outputs"`
}

// PortInfo describes one port of a block.
type PortInfo struct {
	Label    string `json:"label,omitempty"`
	Format   string `json:"format"`
	Size     string `json:"size,omitempty"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// NewBlocksCommand creates the blocks command.
func NewBlocksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BlocksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "blocks [block-id]",
		Short: "List the blocks in the library",
		Long: `List the standard block library plus any --library blocks.

Without an argument every block is listed with its description. With a
block id ("Package/Name") the block's ports and operation are shown.

Examples:
  cipherflow blocks
  cipherflow blocks --package Encryption
  cipherflow blocks "Bitwise/XOR"
  cipherflow blocks --library ./blocks -o blocks.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlocks(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Package, "package", "", "only list blocks of this package")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the listed blocks as JSON to this file")

	return cmd
}

func runBlocks(opts *BlocksOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	lib, err := loadLibrary(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Library holds %d block(s)", lib.Len())

	var defs []*block.Definition
	if len(args) == 1 {
		def, ok := lib.Lookup(args[0])
		if !ok {
			_ = formatter.Error("UNKNOWN_BLOCK", fmt.Sprintf("no block %q in the library", args[0]), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown block %q", args[0]))
		}
		defs = []*block.Definition{def}
	} else {
		for _, def := range lib.Definitions() {
			if opts.Package == "" || def.Decl.Package == opts.Package {
				defs = append(defs, def)
			}
		}
	}

	infos := make([]BlockInfo, len(defs))
	for i, def := range defs {
		infos[i] = blockInfo(def)
	}

	if opts.Output != "" {
		if err := writeBlocksFile(infos, opts.Output); err != nil {
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
		formatter.VerboseLog("Wrote %d block(s) to %s", len(infos), opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	if len(args) == 1 {
		printBlockDetail(cmd, infos[0])
		return nil
	}
	printBlockList(cmd, infos)
	return nil
}

func blockInfo(def *block.Definition) BlockInfo {
	ports := func(ps []ir.Port) []PortInfo {
		out := make([]PortInfo, 0, len(ps))
		for _, p := range ps {
			if p.Internal {
				continue
			}
			info := PortInfo{
				Label:    p.Label,
				Format:   string(p.Format),
				Size:     p.Size.String(),
				Required: p.IsRequired(),
			}
			if p.Default != nil {
				info.Default = ir.Describe(p.Default)
			}
			out = append(out, info)
		}
		return out
	}
	return BlockInfo{
		ID:          def.ID(),
		Kind:        def.Kind.String(),
		Description: def.Decl.Description,
		Operation:   def.Decl.Operation,
		Inputs:      ports(def.Decl.Inputs),
		Outputs:     ports(def.Decl.Outputs),
	}
}

// printBlockList prints blocks grouped under their package.
func printBlockList(cmd *cobra.Command, infos []BlockInfo) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	pkg := ""
	for _, info := range infos {
		p, name, _ := strings.Cut(info.ID, "/")
		if p != pkg {
			if pkg != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", p)
			pkg = p
		}
		fmt.Fprintf(w, "  %s\t%s\n", name, firstLine(info.Description))
	}
	_ = w.Flush()
}

func printBlockDetail(cmd *cobra.Command, info BlockInfo) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s)\n", info.ID, info.Kind)
	if info.Description != "" {
		fmt.Fprintf(w, "\n%s\n", info.Description)
	}
	if info.Operation != "" {
		fmt.Fprintf(w, "\nOperation: %s\n", info.Operation)
	}
	printPorts(w, "Inputs", info.Inputs)
	printPorts(w, "Outputs", info.Outputs)
}

func printPorts(w io.Writer, title string, ports []PortInfo) {
	if len(ports) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for i, p := range ports {
		label := p.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "  %d %s: %s", i, label, p.Format)
		if p.Size != "" {
			fmt.Fprintf(w, " size %s", p.Size)
		}
		if !p.Required {
			fmt.Fprint(w, " (optional)")
		}
		if p.Default != "" {
			fmt.Fprintf(w, " default %s", p.Default)
		}
		fmt.Fprintln(w)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// writeBlocksFile writes the block listing as indented JSON.
func writeBlocksFile(infos []BlockInfo, path string) error {
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling blocks: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
