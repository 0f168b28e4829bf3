// Package native is the boundary between the interpreter and the code
// that actually computes library blocks.
//
// A Module exposes call, malloc, free and a flat memory. Two
// implementations exist: StdModule runs the standard library in process
// over its own first-fit heap, and WasmModule hosts a compiled
// WebAssembly module through wazero. A Loader performs the one-time
// handshake that produces the handle before the first run.
package native
