package native

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Factory creates a module. It is called at most once per Loader.
type Factory func(ctx context.Context) (Module, error)

// Loader performs the one-time handshake that yields a module handle.
// Every call to Module after the first returns the same handle or error.
type Loader struct {
	factory Factory
	once    sync.Once
	mod     Module
	err     error
}

// NewLoader wraps a factory.
func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// StdLoader loads the in-process standard module.
func StdLoader() *Loader {
	return NewLoader(func(context.Context) (Module, error) {
		return NewStdModule(), nil
	})
}

// WasmLoader loads a WebAssembly module from path on first use.
func WasmLoader(path string) *Loader {
	return NewLoader(func(ctx context.Context) (Module, error) {
		wasm, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read wasm module: %w", err)
		}
		return NewWasmModule(ctx, wasm)
	})
}

// FixedLoader returns a loader that hands out mod without any work.
func FixedLoader(mod Module) *Loader {
	return NewLoader(func(context.Context) (Module, error) {
		return mod, nil
	})
}

// Module returns the module, running the handshake on first use.
func (l *Loader) Module(ctx context.Context) (Module, error) {
	l.once.Do(func() {
		l.mod, l.err = l.factory(ctx)
	})
	return l.mod, l.err
}

// Close releases the module if it was loaded.
func (l *Loader) Close(ctx context.Context) error {
	if l.mod == nil {
		return nil
	}
	return l.mod.Close(ctx)
}
