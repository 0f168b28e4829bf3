package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] block %d %s -> %s\n", event.Seq, event.Block, event.Name, strings.Join(event.Outputs, ", "))
		}
	}
	return buf.String()
}

// assertTraceContains checks that the block was pulled at least once,
// with exactly the expected outputs if any are given.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := renderOutputs(assertion.Outputs)
	if err != nil {
		return err
	}
	for _, event := range trace {
		if event.Name != assertion.Block {
			continue
		}
		if len(assertion.Outputs) == 0 || slices.Equal(event.Outputs, want) {
			return nil
		}
	}

	expected := "pull of " + assertion.Block
	if len(want) > 0 {
		expected += " with outputs " + strings.Join(want, ", ")
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func renderOutputs(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		iv, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}
		out[i] = ir.Describe(iv)
	}
	return out, nil
}

// assertTraceOrder checks that the first pulls of the blocks appear in
// the given order. Intervening pulls are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Name]; !seen {
			positions[event.Name] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range assertion.Blocks {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all blocks pulled: %v", assertion.Blocks),
				Actual:   fmt.Sprintf("missing block: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Blocks); i++ {
		prev, curr := assertion.Blocks[i-1], assertion.Blocks[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("blocks in order: %v", assertion.Blocks),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the block was pulled exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Name == assertion.Block {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d pulls of %s", assertion.Count, assertion.Block),
			Actual:   fmt.Sprintf("%d pulls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertDiagnostic checks that some reported message contains the text.
func assertDiagnostic(diagnostics []string, assertion Assertion) error {
	if anyContains(diagnostics, assertion.Contains) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: fmt.Sprintf("a diagnostic containing %q", assertion.Contains),
		Actual:   fmt.Sprintf("%q", diagnostics),
	}
}

// assertJournal reads the journaled run back and compares the fields the
// assertion sets.
func assertJournal(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("run %s in the journal", runID),
			Actual:   "run not found",
		}
	}
	if err != nil {
		return fmt.Errorf("read run %s: %w", runID, err)
	}

	if assertion.Success != nil && run.Success != *assertion.Success {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("success = %t", *assertion.Success),
			Actual:   fmt.Sprintf("success = %t (error %q)", run.Success, run.Error),
		}
	}
	if assertion.Pulls != nil && run.Pulls != *assertion.Pulls {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("pulls = %d", *assertion.Pulls),
			Actual:   fmt.Sprintf("pulls = %d", run.Pulls),
		}
	}
	if assertion.Steps != nil && len(run.Trace) != *assertion.Steps {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("%d trace steps", *assertion.Steps),
			Actual:   fmt.Sprintf("%d trace steps", len(run.Trace)),
		}
	}
	return nil
}

func anyContains(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertDiagnostic:
			err = assertDiagnostic(result.Diagnostics, assertion)
		case AssertJournal:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal requires a store", i)
			} else {
				err = assertJournal(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
