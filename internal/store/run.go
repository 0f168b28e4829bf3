package store

import "github.com/roach88/cipherflow/internal/ir"

// Run is one journaled resolution of a graph.
type Run struct {
	ID      string
	Seq     int64 // assigned by WriteRun
	Success bool
	Pulls   int
	Sink    ir.Value // nil when the sink received nothing
	Error   string

	Trace       []Step
	Diagnostics []string
}

// Step is one block pull within a run.
type Step struct {
	Seq     int64
	Block   int
	Name    string
	Outputs []ir.Value
}
