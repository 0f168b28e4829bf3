package block

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cipherflow/internal/compiler"
)

//go:embed std.cue
var stdLibrary []byte

// Standard returns the built-in blocks plus the embedded standard library.
func Standard() (*Library, error) {
	l := NewLibrary()
	for _, def := range builtins() {
		if err := l.Add(def); err != nil {
			return nil, err
		}
	}

	v := cuecontext.New().CompileBytes(stdLibrary)
	decls, err := compiler.LoadLibraryValue(v, compiler.LoadModeFailFast)
	if err != nil {
		return nil, fmt.Errorf("standard library: %w", err)
	}
	if err := l.AddDecls(decls); err != nil {
		return nil, fmt.Errorf("standard library: %w", err)
	}
	return l, nil
}

// LoadDir adds every block declared in the CUE files under dir.
// In collect-all mode the good blocks are added even when some fail.
func (l *Library) LoadDir(dir string, mode compiler.LoadMode) error {
	res, loadErr := compiler.LoadLibraryDir(dir, mode)
	if res == nil {
		return loadErr
	}
	if loadErr != nil && mode == compiler.LoadModeFailFast {
		return loadErr
	}
	if err := l.AddDecls(res.Blocks); err != nil {
		return err
	}
	return loadErr
}
