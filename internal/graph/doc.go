// Package graph implements the port graph: blocks with a fixed number of
// input and output slots, and mirrored single-peer wires between them.
package graph
