package interp

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cipherflow/internal/compiler"
	"github.com/roach88/cipherflow/internal/cryptoprim"
	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/native"
)

// UtilPackage is the package name of the in-process built-ins.
const UtilPackage = "util"

// Env is what a resolver may use during one run: the native module, the
// run's generator set and the reporter.
type Env struct {
	Ctx        context.Context
	Module     native.Module
	Generators *cryptoprim.GeneratorSet
	Report     func(msg string)
}

func (e *Env) context() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) generators() *cryptoprim.GeneratorSet {
	if e.Generators == nil {
		e.Generators = cryptoprim.NewGeneratorSet()
	}
	return e.Generators
}

// Warn reports a non-fatal "[WARNING]" message.
func (e *Env) Warn(format string, args ...any) {
	e.emit("[WARNING] " + fmt.Sprintf(format, args...))
}

// Info reports an "[INFO]" message.
func (e *Env) Info(format string, args ...any) {
	e.emit("[INFO] " + fmt.Sprintf(format, args...))
}

func (e *Env) emit(msg string) {
	if e != nil && e.Report != nil {
		e.Report(msg)
	}
}

// reportFunc adapts the env reporter for cryptoprim.
func (e *Env) reportFunc() cryptoprim.Report {
	return func(msg string) { e.emit(msg) }
}

// Resolver maps a block's input values to its output values.
type Resolver func(env *Env, inputs []ir.Value) ([]ir.Value, error)

// Operation is a block declaration with its parsed operation, ready to
// be invoked.
type Operation struct {
	decl ir.BlockDecl
	call *compiler.Call
}

// Compile parses the operation of decl.
func Compile(decl ir.BlockDecl) (*Operation, error) {
	call, err := compiler.ParseOperation(decl.Operation, len(decl.Inputs), len(decl.Outputs))
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", decl.ID(), err)
	}
	return &Operation{decl: decl, call: call}, nil
}

// Call returns the parsed call tree.
func (o *Operation) Call() *compiler.Call {
	return o.call
}

// Resolve is the Resolver of a library block.
func (o *Operation) Resolve(env *Env, inputs []ir.Value) ([]ir.Value, error) {
	f, err := NewFrame(o.decl, inputs)
	if err != nil {
		return nil, withBlock(err, o.decl.ID())
	}
	return o.Run(env, f)
}

// Run evaluates the operation against f. Runtime sizes are computed
// first and always unset again before Run returns.
func (o *Operation) Run(env *Env, f *Frame) ([]ir.Value, error) {
	defer f.ResetRuntimeSizes()

	if err := CalculateRuntimeSize(f); err != nil {
		return nil, withBlock(err, o.decl.ID())
	}

	ret, err := eval(env, o.call, f)
	if err != nil {
		return nil, withBlock(err, o.decl.ID())
	}

	// A number output the call never wrote receives its return value.
	for i := range f.Outputs {
		s := &f.Outputs[i]
		if s.Value == nil && s.Port.Format == ir.FormatNumber && !references(o.call, i) {
			s.Value = ir.Number(ret)
		}
	}
	for i, s := range f.Outputs {
		if s.Value == nil && !s.Port.Internal {
			return nil, withBlock(newError(ErrOutputValue, outputName(i), "not written by %s", o.call.Render(len(f.Inputs))), o.decl.ID())
		}
	}
	return f.OutputValues(), nil
}

func references(c *compiler.Call, output int) bool {
	for _, a := range c.Args {
		switch a.Kind {
		case compiler.ArgOutput:
			if a.Index == output {
				return true
			}
		case compiler.ArgCall:
			if references(a.Call, output) {
				return true
			}
		}
	}
	return false
}

// eval evaluates one call and returns its numeric return value.
func eval(env *Env, c *compiler.Call, f *Frame) (int64, error) {
	if c.Package == UtilPackage {
		return evalUtil(env, c, f)
	}
	return evalNative(env, c, f)
}

func evalUtil(env *Env, c *compiler.Call, f *Frame) (int64, error) {
	fn, ok := builtins[c.Function]
	if !ok {
		return 0, newError(ErrUnknownFunction, "", "%s.%s", c.Package, c.Function)
	}
	regs := make([]*Slot, len(c.Args))
	for i, a := range c.Args {
		switch a.Kind {
		case compiler.ArgInput:
			if a.Index >= len(f.Inputs) {
				return 0, newError(ErrIndex, inputName(a.Index), "")
			}
			regs[i] = &f.Inputs[a.Index]
		case compiler.ArgOutput:
			if a.Index >= len(f.Outputs) {
				return 0, newError(ErrIndex, outputName(a.Index), "")
			}
			regs[i] = &f.Outputs[a.Index]
		case compiler.ArgCall:
			n, err := eval(env, a.Call, f)
			if err != nil {
				return 0, err
			}
			regs[i] = &Slot{Value: ir.Number(n)}
		}
	}
	if len(regs) < fn.min || (fn.max >= 0 && len(regs) > fn.max) {
		return 0, newError(ErrRuntimeInputLength, "", "util.%s takes %s arguments, got %d", c.Function, fn.arity(), len(regs))
	}
	return fn.run(env, regs)
}

// evalNative marshals the arguments of c into module memory, calls the
// module and reads output buffers back. Every allocation is released
// before it returns, whatever the outcome.
func evalNative(env *Env, c *compiler.Call, f *Frame) (ret int64, err error) {
	mod := env.Module
	if mod == nil {
		return 0, newError(ErrNative, "", "no native module loaded for %s.%s", c.Package, c.Function)
	}
	ctx := env.context()

	var allocs []uint32
	defer func() {
		for i := len(allocs) - 1; i >= 0; i-- {
			if ferr := mod.Free(ctx, allocs[i]); ferr != nil && err == nil {
				err = &Error{Kind: ErrNative, Msg: "free", Err: ferr}
			}
		}
	}()
	alloc := func(b []byte) (uint32, error) {
		p, err := mod.Malloc(ctx, uint32(len(b)))
		if err != nil {
			return 0, &Error{Kind: ErrNative, Msg: "malloc", Err: err}
		}
		allocs = append(allocs, p)
		if err := mod.Memory().Write(p, b); err != nil {
			return 0, &Error{Kind: ErrNative, Msg: "write", Err: err}
		}
		return p, nil
	}

	type readBack struct {
		slot *Slot
		ptr  uint32
	}
	var saves []readBack

	args := make([]uint64, len(c.Args))
	types := make([]native.ArgType, len(c.Args))
	for i, a := range c.Args {
		types[i] = native.ArgNumber
		switch a.Kind {
		case compiler.ArgInput:
			if a.Index >= len(f.Inputs) {
				return 0, newError(ErrIndex, inputName(a.Index), "")
			}
			s := &f.Inputs[a.Index]
			if s.Port.Format == ir.FormatNumber {
				n, err := numberArg(s, inputName(a.Index))
				if err != nil {
					return 0, err
				}
				args[i] = native.EncodeNumber(n)
				continue
			}
			buf, err := prepareBuffer(env, s, inputName(a.Index))
			if err != nil {
				return 0, err
			}
			p, err := alloc(buf)
			if err != nil {
				return 0, err
			}
			args[i], types[i] = uint64(p), native.ArgPointer

		case compiler.ArgOutput:
			if a.Index >= len(f.Outputs) {
				return 0, newError(ErrIndex, outputName(a.Index), "")
			}
			s := &f.Outputs[a.Index]
			if s.Port.Format == ir.FormatNumber {
				if s.Value == nil {
					return 0, newError(ErrOutputValue, outputName(a.Index), "number output has no value to pass")
				}
				n, err := numberArg(s, outputName(a.Index))
				if err != nil {
					return 0, err
				}
				args[i] = native.EncodeNumber(n)
				continue
			}
			buf := make([]byte, s.RuntimeSize)
			if s.Value != nil {
				if buf, err = prepareBuffer(env, s, outputName(a.Index)); err != nil {
					return 0, err
				}
			}
			p, err := alloc(buf)
			if err != nil {
				return 0, err
			}
			args[i], types[i] = uint64(p), native.ArgPointer
			saves = append(saves, readBack{slot: s, ptr: p})

		case compiler.ArgCall:
			n, err := eval(env, a.Call, f)
			if err != nil {
				return 0, err
			}
			args[i] = native.EncodeNumber(n)
		}
	}

	out, err := mod.Call(ctx, c.Function, native.ReturnNumber, types, args)
	if err != nil {
		if errors.Is(err, native.ErrUnknownFunction) {
			return 0, &Error{Kind: ErrUnknownFunction, Msg: c.Package + "." + c.Function, Err: err}
		}
		return 0, &Error{Kind: ErrNative, Msg: c.Package + "." + c.Function, Err: err}
	}

	for _, r := range saves {
		b, err := mod.Memory().Read(r.ptr, uint32(r.slot.RuntimeSize))
		if err != nil {
			return 0, &Error{Kind: ErrNative, Msg: "read output", Err: err}
		}
		r.slot.Value = ir.Bytes(b)
	}
	return native.DecodeNumber(out), nil
}

func numberArg(s *Slot, port string) (int64, error) {
	n, ok := s.Value.(ir.Number)
	if !ok {
		if s.Value == nil {
			return 0, newError(ErrPrepareInputs, port, "no value")
		}
		return 0, newError(ErrTypeMismatch, port, "number port holds %s", s.Value.Kind())
	}
	return int64(n), nil
}

// prepareBuffer converts a slot value to bytes and pads it to the slot's
// runtime size.
func prepareBuffer(env *Env, s *Slot, port string) ([]byte, error) {
	if s.Value == nil {
		return nil, newError(ErrPrepareInputs, port, "no value")
	}
	b, err := ir.ToBytes(s.Value)
	if err != nil {
		return nil, &Error{Kind: ErrTypeMismatch, Port: port, Err: err}
	}
	out, truncated := ir.Pad(b, s.RuntimeSize)
	if truncated {
		env.Warn("%s truncated from %d to %d bytes", port, len(b), s.RuntimeSize)
	}
	return out, nil
}
