package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cipherflow/internal/ir"
)

// createTestStore creates a fresh journal in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a successful HELLO run with a one-step trace.
func createTestRun(id string) Run {
	return Run{
		ID:      id,
		Success: true,
		Pulls:   1,
		Sink:    ir.Text("HELLO"),
		Trace: []Step{
			{Seq: 1, Block: 0, Name: "Inputs/Alice", Outputs: []ir.Value{ir.Text("HELLO")}},
		},
		Diagnostics: []string{},
	}
}
