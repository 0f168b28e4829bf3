// Package interp evaluates a block's operation against the values on its
// ports.
//
// Calls into the "util" package run in process on values held in a
// register array. Every other package is a native call: inputs are
// converted to byte buffers at their runtime size, written into module
// memory and passed by pointer, output buffers are read back after the
// call, and every allocation is freed before the invocation returns.
package interp
