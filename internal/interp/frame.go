package interp

import (
	"github.com/roach88/cipherflow/internal/ir"
)

// Slot is one port during a single invocation: the declared port, its
// current value and its runtime size in bytes (0 while unset).
//
// Built-in functions receive slots as registers and write their results
// by assigning Value.
type Slot struct {
	Port        ir.Port
	Value       ir.Value
	RuntimeSize int
}

// Frame holds the per-invocation copy of a block's ports. The shared
// block declaration is never written to.
type Frame struct {
	Inputs  []Slot
	Outputs []Slot
}

// NewFrame copies the ports of decl and binds the input values.
func NewFrame(decl ir.BlockDecl, inputs []ir.Value) (*Frame, error) {
	if len(inputs) != len(decl.Inputs) {
		return nil, newError(ErrRuntimeInputLength, "", "block takes %d inputs, got %d", len(decl.Inputs), len(inputs))
	}
	f := &Frame{
		Inputs:  make([]Slot, len(decl.Inputs)),
		Outputs: make([]Slot, len(decl.Outputs)),
	}
	for i, p := range decl.Inputs {
		f.Inputs[i] = Slot{Port: p, Value: inputs[i]}
	}
	for i, p := range decl.Outputs {
		f.Outputs[i] = Slot{Port: p}
	}
	return f, nil
}

// ResetRuntimeSizes unsets every runtime size in the frame.
func (f *Frame) ResetRuntimeSizes() {
	for i := range f.Inputs {
		f.Inputs[i].RuntimeSize = 0
	}
	for i := range f.Outputs {
		f.Outputs[i].RuntimeSize = 0
	}
}

// Sized reports whether any port still carries a runtime size.
func (f *Frame) Sized() bool {
	for _, s := range f.Inputs {
		if s.RuntimeSize != 0 {
			return true
		}
	}
	for _, s := range f.Outputs {
		if s.RuntimeSize != 0 {
			return true
		}
	}
	return false
}

// OutputValues returns the output values in port order.
func (f *Frame) OutputValues() []ir.Value {
	out := make([]ir.Value, len(f.Outputs))
	for i, s := range f.Outputs {
		out[i] = s.Value
	}
	return out
}

// numeric reports whether a slot is sized as a number.
func (s *Slot) numeric() bool {
	if s.Port.Format == ir.FormatNumber {
		return true
	}
	_, ok := s.Value.(ir.Number)
	return ok
}

// valueLen is the byte length of a non-numeric value, or -1 when there is
// no value.
func (s *Slot) valueLen() (int, error) {
	if s.Value == nil {
		return -1, nil
	}
	b, err := ir.ToBytes(s.Value)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// CalculateRuntimeSize assigns a runtime size to every port of f.
//
// Numbers are NumberWidth bytes, fixed sizes are taken as declared, and
// unset or "max" sizes take the largest size among the non-numeric
// inputs. An output sized "iN" copies input N.
func CalculateRuntimeSize(f *Frame) error {
	for i := range f.Inputs {
		s := &f.Inputs[i]
		switch {
		case s.numeric():
			s.RuntimeSize = ir.NumberWidth
		case s.Port.Size.Mode == ir.SizeFixed:
			s.RuntimeSize = s.Port.Size.N
		}
	}

	// Inputs that copy another input are resolved once the fixed sizes are
	// known; max-sized inputs after that.
	for i := range f.Inputs {
		s := &f.Inputs[i]
		if s.RuntimeSize != 0 || s.Port.Size.Mode != ir.SizeInput {
			continue
		}
		n := s.Port.Size.N
		if n < 0 || n >= len(f.Inputs) || n == i {
			return newError(ErrIndex, inputName(i), "size refers to input %d", n)
		}
		s.RuntimeSize = f.Inputs[n].RuntimeSize
	}
	for i := range f.Inputs {
		s := &f.Inputs[i]
		if s.RuntimeSize != 0 {
			continue
		}
		size, err := maxInputSize(f, i)
		if err != nil {
			return err
		}
		s.RuntimeSize = size
	}

	for i := range f.Outputs {
		s := &f.Outputs[i]
		switch {
		case s.Port.Format == ir.FormatNumber:
			s.RuntimeSize = ir.NumberWidth
		case s.Port.Size.Mode == ir.SizeFixed:
			s.RuntimeSize = s.Port.Size.N
		case s.Port.Size.Mode == ir.SizeInput:
			n := s.Port.Size.N
			if n < 0 || n >= len(f.Inputs) {
				return newError(ErrIndex, outputName(i), "size refers to input %d", n)
			}
			s.RuntimeSize = f.Inputs[n].RuntimeSize
		default:
			size, numeric := 0, false
			for _, in := range f.Inputs {
				if in.numeric() {
					numeric = true
					continue
				}
				size = max(size, in.RuntimeSize)
			}
			if size == 0 {
				if numeric {
					return newError(ErrOutputSizeMaxOfIntegers, outputName(i), "every input is a number")
				}
				return newError(ErrOutputSize, outputName(i), "no input determines a size")
			}
			s.RuntimeSize = size
		}
	}
	return nil
}

func maxInputSize(f *Frame, i int) (int, error) {
	size, numeric := 0, false
	own, err := f.Inputs[i].valueLen()
	if err != nil {
		return 0, &Error{Kind: ErrTypeMismatch, Port: inputName(i), Err: err}
	}
	size = max(size, own)

	for k := range f.Inputs {
		if k == i {
			continue
		}
		sib := &f.Inputs[k]
		switch {
		case sib.numeric():
			numeric = true
		case sib.RuntimeSize != 0:
			size = max(size, sib.RuntimeSize)
		default:
			n, err := sib.valueLen()
			if err != nil {
				return 0, &Error{Kind: ErrTypeMismatch, Port: inputName(k), Err: err}
			}
			size = max(size, n)
		}
	}
	if size <= 0 {
		if own < 0 && numeric {
			return 0, newError(ErrInputSizeMaxOfIntegers, inputName(i), "only numeric inputs to size from")
		}
		if own < 0 {
			return 0, newError(ErrInputSize, inputName(i), "no value or sibling determines a size")
		}
	}
	return size, nil
}
