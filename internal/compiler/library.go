package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cipherflow/internal/ir"
)

// LibrarySchema is the CUE definition every block library is unified
// with before compilation. A library maps category -> block name -> block.
const LibrarySchema = `
#Port: {
	side?:     "top" | "bottom" | "left" | "right"
	position?: int & >=0
	format:    "number" | "bytearr" | "inherit" | =~"^i[0-9]+$"
	size?:     (int & >0) | "max" | =~"^i[0-9]+$"
	default?:  int | string | [...(int & >=0 & <=255)]
	label?:    string
	required?: bool
	internal?: bool
}

#Block: {
	operation?:   string
	description?: string
	label?:       string
	format: {
		size?: [int & >=0, int & >=0]
		inputs: [...#Port]
		outputs: [...#Port]
	}
}

#Library: [string]: [string]: #Block
`

// CompileLibrary checks a library value against LibrarySchema and
// compiles every block in declaration order.
//
// The CUE value should be the library struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`util: XOR: { operation: "util.XOR(0,1,2)", format: {...} }`)
//	decls, err := CompileLibrary(v)
func CompileLibrary(v cue.Value) ([]ir.BlockDecl, error) {
	checked, err := checkLibrary(v)
	if err != nil {
		return nil, err
	}

	var decls []ir.BlockDecl
	err = eachBlock(checked, func(pkg, name string, bv cue.Value) error {
		decl, err := CompileBlock(pkg, name, bv)
		if err != nil {
			return err
		}
		decls = append(decls, *decl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decls, nil
}

// checkLibrary unifies v with #Library and validates the result.
func checkLibrary(v cue.Value) (cue.Value, error) {
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	schema := v.Context().CompileString(LibrarySchema).LookupPath(cue.ParsePath("#Library"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return unified, nil
}

// eachBlock walks category -> block in declaration order.
func eachBlock(v cue.Value, fn func(pkg, name string, bv cue.Value) error) error {
	categories, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for categories.Next() {
		pkg := categories.Label()
		blocks, err := categories.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for blocks.Next() {
			if err := fn(pkg, blocks.Label(), blocks.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

// CompileBlock parses a single block declaration.
func CompileBlock(pkg, name string, v cue.Value) (*ir.BlockDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &ir.BlockDecl{Package: pkg, Name: name}
	field := func(f string) string { return pkg + "." + name + "." + f }

	var err error
	if decl.Operation, err = optionalString(v, "operation"); err != nil {
		return nil, err
	}
	if decl.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if decl.Label, err = optionalString(v, "label"); err != nil {
		return nil, err
	}

	formatVal := v.LookupPath(cue.ParsePath("format"))
	if !formatVal.Exists() {
		return nil, &CompileError{
			Field:   field("format"),
			Message: "format is required",
			Pos:     v.Pos(),
		}
	}

	sizeVal := formatVal.LookupPath(cue.ParsePath("size"))
	if sizeVal.Exists() {
		var wh []int64
		if err := sizeVal.Decode(&wh); err != nil {
			return nil, formatCUEError(err)
		}
		if len(wh) == 2 {
			decl.Width, decl.Height = int(wh[0]), int(wh[1])
		}
	}

	if decl.Inputs, err = parsePorts(formatVal, "inputs"); err != nil {
		return nil, err
	}
	if decl.Outputs, err = parsePorts(formatVal, "outputs"); err != nil {
		return nil, err
	}

	return decl, nil
}

// parsePorts extracts a port list. A missing list is an empty one.
func parsePorts(v cue.Value, path string) ([]ir.Port, error) {
	var ports []ir.Port

	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return ports, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		port, err := parsePort(iter.Value())
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func parsePort(v cue.Value) (ir.Port, error) {
	var port ir.Port

	side, err := optionalString(v, "side")
	if err != nil {
		return port, err
	}
	port.Side = ir.Side(side)

	if pv := v.LookupPath(cue.ParsePath("position")); pv.Exists() {
		n, err := pv.Int64()
		if err != nil {
			return port, formatCUEError(err)
		}
		port.Position = int(n)
	}

	format, err := v.LookupPath(cue.ParsePath("format")).String()
	if err != nil {
		return port, formatCUEError(err)
	}
	port.Format = ir.Format(format)

	if sv := v.LookupPath(cue.ParsePath("size")); sv.Exists() {
		raw, err := scalar(sv)
		if err != nil {
			return port, err
		}
		if port.Size, err = ir.ParseSize(raw); err != nil {
			return port, &CompileError{Field: "size", Message: err.Error(), Pos: sv.Pos()}
		}
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		raw, err := scalar(dv)
		if err != nil {
			return port, err
		}
		if port.Default, err = ir.FromAny(raw); err != nil {
			return port, &CompileError{Field: "default", Message: err.Error(), Pos: dv.Pos()}
		}
	}

	if port.Label, err = optionalString(v, "label"); err != nil {
		return port, err
	}

	if rv := v.LookupPath(cue.ParsePath("required")); rv.Exists() {
		b, err := rv.Bool()
		if err != nil {
			return port, formatCUEError(err)
		}
		port.Required = &b
	}

	if iv := v.LookupPath(cue.ParsePath("internal")); iv.Exists() {
		if port.Internal, err = iv.Bool(); err != nil {
			return port, formatCUEError(err)
		}
	}

	return port, nil
}

// scalar reads an int, string or list of ints as a plain Go value.
func scalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.ListKind:
		var ns []int64
		if err := v.Decode(&ns); err != nil {
			return nil, formatCUEError(err)
		}
		out := make([]any, len(ns))
		for i, n := range ns {
			out[i] = n
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
