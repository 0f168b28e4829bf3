// Package harness runs graph scenarios against the engine.
//
// A scenario builds a graph through the engine's edit operations, runs
// Verify and ResolveGraph, and checks the outcome and the pull trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: hello
//	description: "Alice sends a message straight to Bob"
//	library: blocks          # optional CUE library directory, relative to the file
//	max_pulls: 100           # optional pull quota
//	run_id: hello-run        # optional journal id, default "scenario-run"
//	blocks:
//	  - block: Inputs/Alice
//	    literal: HELLO
//	  - block: Outputs/Bob
//	wires:
//	  - from: {block: 0, port: 0}
//	    to: {block: 1, port: 0}
//	expect:
//	  success: true
//	  sink: HELLO
//	  warnings: 0
//	assertions:
//	  - type: trace_contains
//	    block: Inputs/Alice
//	    outputs: [HELLO]
//
// Blocks are added in order and get ids 0, 1, ... unless an explicit id
// is given. Sink values and trace outputs are written as YAML scalars:
// integers are numbers, strings are text, and integer lists are bytes.
//
// # Assertion Types
//
//   - trace_contains: a pull of the block, optionally with exactly these outputs
//   - trace_order: first pulls of the blocks happen in this order
//   - trace_count: the block is pulled exactly count times
//   - diagnostic: some reported message contains the text
//   - journal: the journaled run has the given success, pulls and steps
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory journal with a fixed run id,
// so traces are identical across runs and can be compared against golden
// files with RunWithGolden.
package harness
