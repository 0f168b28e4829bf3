package native

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmModule hosts a compiled WebAssembly module that exports malloc,
// free, a memory and the block library functions.
type WasmModule struct {
	runtime wazero.Runtime
	mod     api.Module
	malloc  api.Function
	free    api.Function
}

var _ Module = (*WasmModule)(nil)

// NewWasmModule compiles and instantiates wasm with WASI preview1 host
// functions available.
func NewWasmModule(ctx context.Context, wasm []byte) (*WasmModule, error) {
	r := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	mod, err := r.Instantiate(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	w := &WasmModule{
		runtime: r,
		mod:     mod,
		malloc:  exported(mod, "malloc"),
		free:    exported(mod, "free"),
	}
	if w.malloc == nil || w.free == nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("module must export malloc and free")
	}
	if mod.Memory() == nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("module must export a memory")
	}
	return w, nil
}

// exported looks a function up under its plain and underscore-prefixed
// names, the latter being how emscripten exports C symbols.
func exported(mod api.Module, name string) api.Function {
	if fn := mod.ExportedFunction(name); fn != nil {
		return fn
	}
	return mod.ExportedFunction("_" + name)
}

// Call invokes an exported function.
func (w *WasmModule) Call(ctx context.Context, name string, ret ReturnType, argTypes []ArgType, args []uint64) (uint64, error) {
	fn := exported(w.mod, name)
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if params := fn.Definition().ParamTypes(); len(params) != len(args) {
		return 0, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, name, len(params), len(args))
	}
	if argTypes != nil && len(argTypes) != len(args) {
		return 0, fmt.Errorf("%w: %d types for %d args", ErrArgCount, len(argTypes), len(args))
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if ret == ReturnVoid || len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

// Malloc allocates size bytes in module memory.
func (w *WasmModule) Malloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := w.malloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("malloc: %w", err)
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return 0, fmt.Errorf("malloc: out of memory for %d bytes", size)
	}
	return ptr, nil
}

// Free releases module memory.
func (w *WasmModule) Free(ctx context.Context, ptr uint32) error {
	if _, err := w.free.Call(ctx, api.EncodeU32(ptr)); err != nil {
		return fmt.Errorf("free: %w", err)
	}
	return nil
}

// Memory exposes the module's linear memory.
func (w *WasmModule) Memory() Memory {
	return wasmMemory{mem: w.mod.Memory()}
}

// Close tears down the runtime and every module in it.
func (w *WasmModule) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

type wasmMemory struct {
	mem api.Memory
}

func (m wasmMemory) Read(ptr, n uint32) ([]byte, error) {
	b, ok := m.mem.Read(ptr, n)
	if !ok {
		return nil, fmt.Errorf("%w: read %d bytes at %#x", ErrOutOfBounds, n, ptr)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m wasmMemory) Write(ptr uint32, b []byte) error {
	if !m.mem.Write(ptr, b) {
		return fmt.Errorf("%w: write %d bytes at %#x", ErrOutOfBounds, len(b), ptr)
	}
	return nil
}
