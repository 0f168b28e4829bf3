package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cipherflow/internal/ir"
)

// ============================================================================
// Write / Read
// ============================================================================

func TestWriteRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run := Run{
		ID:      "run-1",
		Success: true,
		Pulls:   5,
		Sink:    ir.Number(3),
		Trace: []Step{
			{Seq: 1, Block: 1, Name: "Constants/Number", Outputs: []ir.Value{ir.Number(3)}},
			{Seq: 2, Block: 0, Name: "Control Blocks/Loop", Outputs: []ir.Value{ir.Number(1), nil}},
			{Seq: 3, Block: 2, Name: "Bitwise/XOR", Outputs: []ir.Value{ir.Bytes{0x0F, 0xFF}}},
		},
		Diagnostics: []string{"[WARNING] input 1 truncated from 3 to 2 bytes", "[INFO] E observed a value of: 7"},
	}

	seq, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	run.Seq = 1
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("ReadRun mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRun_FailedRunKeepsNilSink(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.WriteRun(ctx, Run{ID: "run-x", Pulls: 10001, Error: "QUOTA_EXCEEDED: run exceeded max pulls"})
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "run-x")
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.Nil(t, got.Sink)
	assert.Equal(t, "QUOTA_EXCEEDED: run exceeded max pulls", got.Error)
	assert.Empty(t, got.Trace)
	assert.Empty(t, got.Diagnostics)
}

func TestWriteRun_AssignsIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i := 1; i <= 3; i++ {
		seq, err := s.WriteRun(ctx, createTestRun(fmt.Sprintf("run-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}
}

func TestWriteRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.WriteRun(ctx, createTestRun("run-1"))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, createTestRun("run-1"))
	assert.Error(t, err)

	// The failed write left nothing behind
	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteRun_EmptyID(t *testing.T) {
	_, err := createTestStore(t).WriteRun(context.Background(), Run{})
	assert.Error(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	_, err := createTestStore(t).ReadRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

// ============================================================================
// ListRuns
// ============================================================================

func TestListRuns_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.WriteRun(ctx, createTestRun(id))
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, runIDs(all), "ordered by seq, not id")

	last, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runIDs(last))
	assert.Nil(t, last[0].Trace, "listing omits traces")
}

func TestListRuns_Empty(t *testing.T) {
	runs, err := createTestStore(t).ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func runIDs(runs []Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

// ============================================================================
// Encoding
// ============================================================================

func TestValueEnvelope_KeepsKinds(t *testing.T) {
	for _, v := range []ir.Value{ir.Number(-1), ir.Text("7"), ir.Bytes{7}, ir.Bytes{}} {
		data, err := marshalValue(v)
		require.NoError(t, err)
		got, err := unmarshalValue(data)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	data, err := marshalValue(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestValueEnvelope_UnknownKind(t *testing.T) {
	_, err := fromEnvelope(&envelope{Kind: "float"})
	assert.Error(t, err)
}
