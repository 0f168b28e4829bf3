package interp

import (
	"errors"
	"fmt"
	"strings"
)

// Fault kinds raised while evaluating an operation. All are fatal to the
// invocation and are wrapped in *Error.
var (
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrPrepareInputs           = errors.New("cannot prepare input")
	ErrOutputValue             = errors.New("output has no value")
	ErrIndex                   = errors.New("port index out of range")
	ErrInputSize               = errors.New("cannot determine input size")
	ErrOutputSize              = errors.New("cannot determine output size")
	ErrInputSizeMaxOfIntegers  = errors.New("input size: max of integers not allowed")
	ErrOutputSizeMaxOfIntegers = errors.New("output size: max of integers not allowed")
	ErrRuntimeInputLength      = errors.New("wrong number of inputs")
	ErrUnknownFunction         = errors.New("unknown function")
	ErrNative                  = errors.New("native call failed")
)

// Error is an evaluation failure tied to a block and, when known, a port.
type Error struct {
	Kind  error
	Block string
	Port  string
	Msg   string
	Err   error // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Block != "" {
		b.WriteString(e.Block)
		b.WriteString(": ")
	}
	if e.Port != "" {
		b.WriteString(e.Port)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the fault kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, port string, format string, args ...any) *Error {
	return &Error{Kind: kind, Port: port, Msg: fmt.Sprintf(format, args...)}
}

// withBlock stamps the block identity on an *Error that lacks one.
func withBlock(err error, block string) error {
	var e *Error
	if errors.As(err, &e) && e.Block == "" {
		e.Block = block
		return err
	}
	if err != nil && e == nil {
		return &Error{Kind: ErrNative, Block: block, Err: err}
	}
	return err
}

func inputName(i int) string  { return fmt.Sprintf("input %d", i) }
func outputName(i int) string { return fmt.Sprintf("output %d", i) }
