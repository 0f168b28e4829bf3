package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/cipherflow/internal/ir"
)

// LoadMode controls how errors are handled during library loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// LoadError represents an error that occurred during library loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains the blocks compiled from a directory.
type LoadResult struct {
	Blocks    []ir.BlockDecl
	FileCount int
}

// LoadLibraryDir loads every CUE file in dir as one block library.
//
// In LoadModeFailFast the first compile or validation failure is returned.
// In LoadModeCollectAll every failing block is skipped and the failures
// are returned together as a *multierror.Error alongside the good blocks.
func LoadLibraryDir(dir string, mode LoadMode) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("library directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing library directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{FileCount: len(cueFiles)}
	blocks, err := LoadLibraryValue(value, mode)
	result.Blocks = blocks
	return result, err
}

// LoadLibraryValue compiles and validates an already built library value.
func LoadLibraryValue(value cue.Value, mode LoadMode) ([]ir.BlockDecl, error) {
	checked, err := checkLibrary(value)
	if err != nil {
		return nil, err
	}

	var (
		blocks []ir.BlockDecl
		errs   *multierror.Error
	)
	walkErr := eachBlock(checked, func(pkg, name string, bv cue.Value) error {
		decl, err := CompileBlock(pkg, name, bv)
		if err != nil {
			if mode == LoadModeFailFast {
				return err
			}
			errs = multierror.Append(errs, err)
			return nil
		}
		if verrs := ValidateBlock(*decl); len(verrs) > 0 {
			if mode == LoadModeFailFast {
				return verrs[0]
			}
			for _, ve := range verrs {
				errs = multierror.Append(errs, ve)
			}
			return nil
		}
		blocks = append(blocks, *decl)
		return nil
	})
	if walkErr != nil {
		return blocks, walkErr
	}
	return blocks, errs.ErrorOrNil()
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
