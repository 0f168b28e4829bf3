package engine

import "github.com/roach88/cipherflow/internal/ir"

// TraceEntry records one block pull.
type TraceEntry struct {
	Seq     int64      `json:"seq"`
	Block   int        `json:"block"`
	Name    string     `json:"name"`
	Outputs []ir.Value `json:"-"`
}

// traceLog is the pull trace of the current run. Seq counts pulls from 1
// and never looks at wall time.
type traceLog struct {
	entries []TraceEntry
}

// record appends a pull of block and returns its entry. outputs must not
// be modified afterwards.
func (t *traceLog) record(block int, name string, outputs []ir.Value) TraceEntry {
	entry := TraceEntry{
		Seq:     int64(len(t.entries)) + 1,
		Block:   block,
		Name:    name,
		Outputs: outputs,
	}
	t.entries = append(t.entries, entry)
	return entry
}

// reset starts a new trace. Entries handed out earlier stay valid.
func (t *traceLog) reset() {
	t.entries = nil
}
