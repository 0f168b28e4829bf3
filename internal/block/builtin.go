package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cipherflow/internal/interp"
	"github.com/roach88/cipherflow/internal/ir"
)

// Identities of the built-in blocks.
const (
	SourceID       = "Inputs/Alice"
	SinkID         = "Outputs/Bob"
	ObserverID     = "Adversaries/Eavesdropper"
	SplitID        = "Control Blocks/Split"
	LoopID         = "Control Blocks/Loop"
	NumberID       = "Constants/Number"
	StringID       = "Constants/String"
	ArrayID        = "Constants/Array"
	loopBoundInput = 0
	loopInInput    = 1
)

func port(side ir.Side, pos int, format ir.Format, label string) ir.Port {
	return ir.Port{Side: side, Position: pos, Format: format, Label: label}
}

func builtins() []*Definition {
	return []*Definition{
		{
			Kind: KindSource,
			Decl: ir.BlockDecl{
				Package: "Inputs", Name: "Alice", Label: "A", Width: 50, Height: 50,
				Description: "Block used to specify the message sender",
				Outputs:     []ir.Port{port(ir.SideRight, 0, ir.FormatBytes, "message")},
			},
			Literal: sourceLiteral,
		},
		{
			Kind: KindSink,
			Decl: ir.BlockDecl{
				Package: "Outputs", Name: "Bob", Label: "B", Width: 50, Height: 50,
				Description: "Block used to specify the message receiver",
				Inputs:      []ir.Port{port(ir.SideLeft, 0, ir.FormatInherit, "message")},
			},
		},
		{
			Kind: KindObserver,
			Decl: ir.BlockDecl{
				Package: "Adversaries", Name: "Eavesdropper", Label: "E", Width: 50, Height: 50,
				Description: "Block used to eavesdrop on a block transition",
				Inputs:      []ir.Port{port(ir.SideLeft, 0, ir.FormatInherit, "")},
				Outputs:     []ir.Port{port(ir.SideRight, 0, "i0", "")},
			},
		},
		{
			Kind: KindSplit,
			Decl: ir.BlockDecl{
				Package: "Control Blocks", Name: "Split", Label: "⑂", Width: 50, Height: 50,
				Description: "Block used to split a single wire into up to three",
				Inputs:      []ir.Port{port(ir.SideLeft, 0, ir.FormatInherit, "")},
				Outputs: []ir.Port{
					port(ir.SideTop, 0, "i0", ""),
					port(ir.SideRight, 0, "i0", ""),
					port(ir.SideBottom, 0, "i0", ""),
				},
			},
			Resolve: split,
		},
		{
			Kind: KindLoop,
			Decl: ir.BlockDecl{
				Package: "Control Blocks", Name: "Loop", Label: "↻", Width: 100, Height: 50,
				Description: "Block that counts passes around its loop-back wire until the bound is reached",
				Inputs: []ir.Port{
					port(ir.SideLeft, 0, ir.FormatNumber, "bound"),
					{Side: ir.SideBottom, Position: 0, Format: ir.FormatNumber, Label: "loop-in", Required: ir.Optional(), Default: ir.Number(0)},
				},
				Outputs: []ir.Port{
					port(ir.SideBottom, 1, ir.FormatNumber, "loop-back"),
					port(ir.SideRight, 0, ir.FormatNumber, "count"),
				},
			},
			Resolve: loop,
		},
		{
			Kind: KindConstant,
			Decl: ir.BlockDecl{
				Package: "Constants", Name: "Number", Label: "🔢", Width: 100, Height: 50,
				Description: "Block used to specify a constant number",
				Outputs:     []ir.Port{port(ir.SideRight, 0, ir.FormatNumber, "")},
			},
			Literal: numberLiteral,
		},
		{
			Kind: KindConstant,
			Decl: ir.BlockDecl{
				Package: "Constants", Name: "String", Label: "🔤", Width: 150, Height: 50,
				Description: "Block used to specify a constant string",
				Outputs:     []ir.Port{port(ir.SideRight, 0, ir.FormatBytes, "")},
			},
			Literal: stringLiteral,
		},
		{
			Kind: KindConstant,
			Decl: ir.BlockDecl{
				Package: "Constants", Name: "Array", Label: "[ ]", Width: 150, Height: 50,
				Description: "Block used to specify a constant array",
				Outputs:     []ir.Port{port(ir.SideRight, 0, ir.FormatBytes, "")},
			},
			Literal: arrayLiteral,
		},
	}
}

func split(_ *interp.Env, in []ir.Value) ([]ir.Value, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("%w: split takes 1 input, got %d", interp.ErrRuntimeInputLength, len(in))
	}
	return []ir.Value{in[0], in[0], in[0]}, nil
}

// loop emits the next count on loop-back until it reaches the bound, then
// emits it on count instead.
func loop(_ *interp.Env, in []ir.Value) ([]ir.Value, error) {
	if len(in) != 2 {
		return nil, fmt.Errorf("%w: loop takes 2 inputs, got %d", interp.ErrRuntimeInputLength, len(in))
	}
	bound, err := ir.ToNumber(in[loopBoundInput])
	if err != nil {
		return nil, fmt.Errorf("loop bound: %w", err)
	}
	var current int64
	if in[loopInInput] != nil {
		if current, err = ir.ToNumber(in[loopInInput]); err != nil {
			return nil, fmt.Errorf("loop-in: %w", err)
		}
	}
	next := current + 1
	if next >= bound {
		return []ir.Value{nil, ir.Number(next)}, nil
	}
	return []ir.Value{ir.Number(next), nil}, nil
}

// sourceLiteral sends a message that is a plain non-negative decimal as a
// number and anything else as text.
func sourceLiteral(lit string) (ir.Value, error) {
	if lit == "" {
		return nil, fmt.Errorf("no message set")
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil && n >= 0 {
		return ir.Number(n), nil
	}
	if _, err := ir.TextToBytes(lit); err != nil {
		return nil, err
	}
	return ir.Text(lit), nil
}

func numberLiteral(lit string) (ir.Value, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(lit), 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%q is not a non-negative integer", lit)
	}
	return ir.Number(n), nil
}

func stringLiteral(lit string) (ir.Value, error) {
	if _, err := ir.TextToBytes(lit); err != nil {
		return nil, err
	}
	return ir.Text(lit), nil
}

// arrayLiteral parses "1, 2, 255" into bytes.
func arrayLiteral(lit string) (ir.Value, error) {
	if strings.TrimSpace(lit) == "" {
		return nil, fmt.Errorf("empty array")
	}
	parts := strings.Split(lit, ",")
	out := make(ir.Bytes, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("element %d: %q is not a byte", i, strings.TrimSpace(p))
		}
		out[i] = byte(n)
	}
	return out, nil
}
