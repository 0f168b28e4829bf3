// Package block holds the catalog of blocks that can be placed in a graph.
//
// A Definition pairs a declaration with a closed Kind. Library blocks are
// compiled from CUE declarations and resolve through the interpreter;
// the source, sink, constant, observer, split and loop blocks are built in.
package block
