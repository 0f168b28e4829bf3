package cli

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/compiler"
	"github.com/roach88/cipherflow/internal/ir"
)

// Validation error codes the CLI adds to the compiler's.
const (
	ErrCodeCompile   = compiler.ErrCodeGeneric // block failed to compile
	ErrCodeDuplicate = "E007"                  // block identity already taken
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Blocks int                        `json:"blocks"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <library-dir>",
		Short: "Validate a CUE block library",
		Long: `Validate the CUE block definitions in a directory.

Every block is checked against the library schema, its ports and operation
are validated, and its identity must not clash with the standard library.
All problems are reported, not only the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := compiler.LoadLibraryDir(dir, compiler.LoadModeCollectAll)
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
	}
	if result == nil {
		return outputValidateError(formatter, compiler.ErrCodeGeneric, fmt.Sprintf("%v", err), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	verrs := validationErrors(err)
	verrs = append(verrs, checkAgainstStandard(result, formatter)...)

	if len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}
	return outputValidateSuccess(formatter, len(result.Blocks))
}

// validationErrors flattens the collected load failures.
func validationErrors(err error) []compiler.ValidationError {
	if err == nil {
		return nil
	}
	errs := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	}

	out := make([]compiler.ValidationError, 0, len(errs))
	for _, e := range errs {
		var (
			ve compiler.ValidationError
			ce *compiler.CompileError
		)
		switch {
		case errors.As(e, &ve):
			out = append(out, ve)
		case errors.As(e, &ce):
			out = append(out, compiler.ValidationError{Field: ce.Field, Message: ce.Message, Code: ErrCodeCompile})
		default:
			out = append(out, compiler.ValidationError{Field: "library", Message: e.Error(), Code: ErrCodeCompile})
		}
	}
	return out
}

// checkAgainstStandard registers the blocks on top of the standard library
// one at a time so every clash is reported.
func checkAgainstStandard(result *compiler.LoadResult, formatter *OutputFormatter) []compiler.ValidationError {
	lib, err := block.Standard()
	if err != nil {
		return []compiler.ValidationError{{Field: "library", Message: err.Error(), Code: ErrCodeCompile}}
	}

	var out []compiler.ValidationError
	for _, decl := range result.Blocks {
		formatter.VerboseLog("Validating block: %s", decl.ID())
		if _, exists := lib.Lookup(decl.ID()); exists {
			out = append(out, compiler.ValidationError{
				Block:   decl.ID(),
				Field:   "name",
				Message: "already defined by the standard library",
				Code:    ErrCodeDuplicate,
			})
			continue
		}
		if err := lib.AddDecls([]ir.BlockDecl{decl}); err != nil {
			out = append(out, compiler.ValidationError{
				Block:   decl.ID(),
				Field:   "operation",
				Message: err.Error(),
				Code:    ErrCodeCompile,
			})
		}
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, blocks int) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Blocks: blocks})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d block(s) valid\n", blocks)
	return nil
}

// outputValidateError outputs a single error that stopped loading.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// A library that cannot be loaded at all is a command error (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		_ = formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Block != "" {
			fmt.Fprintln(formatter.Writer, err.Block)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
