package block

import "fmt"

// Kind is the closed set of block behaviours the engine distinguishes.
// Everything declared in a library is KindLibrary; the rest are built in.
type Kind uint8

const (
	// KindLibrary blocks run their operation through the interpreter.
	KindLibrary Kind = iota

	// KindSource emits the run's message.
	KindSource

	// KindSink receives the run's result.
	KindSink

	// KindConstant emits a literal supplied with the block instance.
	KindConstant

	// KindObserver forwards its input unchanged and reports what it saw.
	KindObserver

	// KindSplit copies its input to every output.
	KindSplit

	// KindLoop counts iterations around a feedback wire.
	KindLoop
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindSource:
		return "source"
	case KindSink:
		return "sink"
	case KindConstant:
		return "constant"
	case KindObserver:
		return "observer"
	case KindSplit:
		return "split"
	case KindLoop:
		return "loop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// HasLiteral reports whether instances of the kind carry a literal.
func (k Kind) HasLiteral() bool {
	return k == KindSource || k == KindConstant
}
