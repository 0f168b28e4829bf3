package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Block: 0, Name: "Constants/Number", Outputs: []string{"3"}},
		{Seq: 2, Block: 1, Name: "Control Blocks/Loop", Outputs: []string{"1", "<none>"}},
		{Seq: 3, Block: 0, Name: "Constants/Number", Outputs: []string{"3"}},
		{Seq: 4, Block: 1, Name: "Control Blocks/Loop", Outputs: []string{"<none>", "2"}},
	}
}

func ptr[T any](v T) *T { return &v }

// ============================================================================
// Trace assertions
// ============================================================================

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Block: "Control Blocks/Loop"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Block: "Control Blocks/Loop", Outputs: []any{nil, 2}}))

	err := assertTraceContains(trace, Assertion{Block: "Control Blocks/Loop", Outputs: []any{nil, 3}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, aerr.Expected, "<none>, 3")
	assert.Contains(t, err.Error(), "[4] block 1 Control Blocks/Loop -> <none>, 2")

	assert.Error(t, assertTraceContains(trace, Assertion{Block: "Outputs/Bob"}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Blocks: []string{"Constants/Number", "Control Blocks/Loop"}}))

	err := assertTraceOrder(trace, Assertion{Blocks: []string{"Control Blocks/Loop", "Constants/Number"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Blocks: []string{"Inputs/Alice"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing block: Inputs/Alice")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Block: "Constants/Number", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Block: "Outputs/Bob", Count: 0}))

	err := assertTraceCount(trace, Assertion{Block: "Constants/Number", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 pulls")
}

func TestAssertDiagnostic(t *testing.T) {
	diags := []string{"[WARNING] block 1 (Test/Warmup) input 0 has no value, using default 5"}

	assert.NoError(t, assertDiagnostic(diags, Assertion{Contains: "using default 5"}))
	assert.Error(t, assertDiagnostic(diags, Assertion{Contains: "[ERROR]"}))
	assert.Error(t, assertDiagnostic(nil, Assertion{Contains: "anything"}))
}

// ============================================================================
// Journal assertions
// ============================================================================

func TestAssertJournal(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.WriteRun(ctx, store.Run{
		ID:      "journal-run",
		Success: true,
		Pulls:   2,
		Sink:    ir.Number(7),
		Trace: []store.Step{
			{Seq: 1, Block: 0, Name: "Constants/Number", Outputs: []ir.Value{ir.Number(7)}},
			{Seq: 2, Block: 1, Name: "Control Blocks/Split", Outputs: []ir.Value{ir.Number(7), ir.Number(7), ir.Number(7)}},
		},
	})
	require.NoError(t, err)

	assert.NoError(t, assertJournal(ctx, st, "journal-run", Assertion{Success: ptr(true), Pulls: ptr(2), Steps: ptr(2)}))

	err = assertJournal(ctx, st, "journal-run", Assertion{Pulls: ptr(3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pulls = 3")

	err = assertJournal(ctx, st, "journal-run", Assertion{Success: ptr(false)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "success = true")

	err = assertJournal(ctx, st, "missing", Assertion{Success: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Block: "Control Blocks/Loop", Count: 2},
		{Type: AssertJournal, Success: ptr(true)},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "journal requires a store")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
