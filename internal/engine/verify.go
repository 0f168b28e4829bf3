package engine

import (
	"fmt"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/graph"
	"github.com/roach88/cipherflow/internal/ir"
)

// Verify checks whether the graph can run and returns one message per
// problem, in block order. It looks for:
//   - a missing sink, or more than one
//   - literals their block rejects
//   - required inputs with no wire and no default
//   - wires carrying bytes into a number input
//   - cycles that no default or optional input can start
func (e *Engine) Verify() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch sinks := e.blocksOfKind(block.KindSink); len(sinks) {
	case 0:
		add("no %s block to receive the result", block.SinkID)
	case 1:
	default:
		add("%d %s blocks; only block %d is resolved", len(sinks), block.SinkID, sinks[0])
	}

	for _, id := range e.graph.Blocks() {
		inst := e.blocks[id]
		if inst.def.Kind.HasLiteral() {
			if err := inst.def.ValidateLiteral(inst.literal); err != nil {
				add("%s: %v", e.name(id), err)
			}
		}

		for i, p := range inst.def.Decl.Inputs {
			peer, ok := e.graph.ConnectedBlock(id, i)
			if !ok {
				if p.IsRequired() && p.Default == nil {
					add("%s: input %d%s is not connected", e.name(id), i, portLabel(p))
				}
				continue
			}
			if p.Format != ir.FormatNumber {
				continue
			}
			if f, known := e.outputFormat(peer, map[graph.Peer]bool{}); known && f == ir.FormatBytes {
				add("%s: input %d%s takes a number but %s output %d produces %s",
					e.name(id), i, portLabel(p), e.name(peer.Block), peer.Port, f)
			}
		}
	}

	for _, c := range e.graph.Cycles() {
		if !e.cycleCanStart(c) {
			add("blocks %v form a cycle with no default or optional input to start from", c.Blocks)
		}
	}
	return problems
}

func portLabel(p ir.Port) string {
	if p.Label == "" {
		return ""
	}
	return " (" + p.Label + ")"
}

// outputFormat resolves the format an output produces. "iN" formats are
// followed back through input N and whatever feeds it. known is false
// when the format is only decided at run time.
func (e *Engine) outputFormat(out graph.Peer, seen map[graph.Peer]bool) (f ir.Format, known bool) {
	if seen[out] {
		return "", false
	}
	seen[out] = true

	inst := e.blocks[out.Block]
	if inst.def.Kind == block.KindSource {
		if v, err := inst.def.Literal(inst.literal); err == nil {
			if _, ok := v.(ir.Number); ok {
				return ir.FormatNumber, true
			}
		}
	}
	decl := inst.def.Decl
	f = decl.Outputs[out.Port].Format
	if f == ir.FormatNumber || f == ir.FormatBytes {
		return f, true
	}
	n, ok := f.InputRef()
	if !ok || n >= len(decl.Inputs) {
		return "", false
	}
	if in := decl.Inputs[n].Format; in == ir.FormatNumber || in == ir.FormatBytes {
		return in, true
	}
	peer, ok := e.graph.ConnectedBlock(out.Block, n)
	if !ok {
		return "", false
	}
	return e.outputFormat(peer, seen)
}

// cycleCanStart reports whether every loop in c passes through an input
// with a default or one that may be skipped, which is what lets the first
// pull around each loop finish.
func (e *Engine) cycleCanStart(c graph.Cycle) bool {
	return !e.graph.LoopsWithout(c, func(in graph.Peer) bool {
		p := e.blocks[in.Block].def.Decl.Inputs[in.Port]
		return p.Default != nil || !p.IsRequired()
	})
}
