// Package engine resolves a graph of blocks on demand.
//
// An Engine owns a PortGraph plus the block instance at every id. Runs
// start at the sink (Outputs/Bob) and pull backwards: a block is resolved
// when a consumer needs one of its outputs, and resolved again each time
// that output has been consumed and is needed once more.
//
// # Slot values
//
// Every output and input slot holds at most one value. Taking a value
// from an output empties it (single consumption), and a block's inputs
// are cleared once its resolver has run. Defaults are placed before the
// run starts. This is what makes feedback wires work: a Loop block feeds
// its own loop-in, starting from the default, and is pulled until its
// count output finally holds a value.
//
// # Termination
//
// Each pull counts against a quota (WithMaxPulls). A cycle in which every
// input is required and has no default never produces a value; Verify
// reports such cycles before a run, and the quota ends the run with
// ErrCodeQuotaExceeded if one is started anyway.
//
// # Determinism
//
// Inputs are pulled in port order, trace entries are numbered by pull
// order and the PRG state is reset at the start of every run, so the same
// graph always yields the same trace.
package engine
