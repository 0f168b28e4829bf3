package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/compiler"
	"github.com/roach88/cipherflow/internal/engine"
	"github.com/roach88/cipherflow/internal/harness"
	"github.com/roach88/cipherflow/internal/native"
	"github.com/roach88/cipherflow/internal/store"
)

// workspace is an engine with the graph of one scenario placed on it, plus
// the resources the command must release.
type workspace struct {
	engine   *engine.Engine
	scenario *harness.Scenario
	loader   *native.Loader
	journal  *store.Store // nil without --db
}

// Close releases the native module and the journal.
func (w *workspace) Close() {
	if w.loader != nil {
		_ = w.loader.Close(context.Background())
	}
	if w.journal != nil {
		_ = w.journal.Close()
	}
}

// openWorkspace loads the scenario at path and builds its graph.
func openWorkspace(opts *RootOptions, path string, logOut io.Writer) (*workspace, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	lib, err := loadLibrary(opts, scenario)
	if err != nil {
		return nil, err
	}

	ws := &workspace{scenario: scenario, loader: newLoader(opts)}

	engOpts := []engine.Option{engine.WithLogger(newLogger(opts, logOut))}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		ws.journal = st
		engOpts = append(engOpts, engine.WithJournal(st))
	}
	if maxPulls := pullQuota(opts, scenario); maxPulls > 0 {
		engOpts = append(engOpts, engine.WithMaxPulls(maxPulls))
	}

	ws.engine = engine.New(lib, ws.loader, engOpts...)
	if err := harness.Build(ws.engine, scenario); err != nil {
		ws.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build graph", err)
	}
	return ws, nil
}

// loadLibrary returns the standard library extended by the scenario's
// library and the --library directory.
func loadLibrary(opts *RootOptions, scenario *harness.Scenario) (*block.Library, error) {
	var (
		lib *block.Library
		err error
	)
	if scenario != nil {
		lib, err = harness.Library(scenario)
	} else {
		lib, err = block.Standard()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load block library", err)
	}
	if opts.Library != "" {
		if err := lib.LoadDir(opts.Library, compiler.LoadModeFailFast); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load library %s", opts.Library), err)
		}
	}
	return lib, nil
}

// newLoader returns the WebAssembly loader for --wasm, else the built-in
// module.
func newLoader(opts *RootOptions) *native.Loader {
	if opts.Wasm != "" {
		return native.WasmLoader(opts.Wasm)
	}
	return native.StdLoader()
}

// pullQuota prefers --max-pulls over the scenario's own quota.
func pullQuota(opts *RootOptions, scenario *harness.Scenario) int {
	if opts.MaxPulls > 0 {
		return opts.MaxPulls
	}
	return scenario.MaxPulls
}

// newLogger writes text logs to w: debug level with --verbose, warnings
// only otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
