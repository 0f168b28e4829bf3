package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/graph"
	"github.com/roach88/cipherflow/internal/interp"
	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/native"
	"github.com/roach88/cipherflow/internal/store"
)

// Result is the outcome of one run.
type Result struct {
	// RunID names the journaled run; empty without a journal.
	RunID string

	// Success is true when the sink received a value.
	Success bool
	Sink    ir.Value

	Pulls       int
	Trace       []TraceEntry
	Diagnostics []string
}

// ResolveGraph runs the graph: it pulls a value into the sink, resolving
// every block the sink transitively depends on, as often as it is
// demanded.
//
// The native module is obtained from the loader first (once per engine).
// On failure the partial result is returned together with the error.
func (e *Engine) ResolveGraph(ctx context.Context, report Reporter) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, &RuntimeError{Code: ErrCodeRunInProgress, Message: "a run is already in progress", Block: -1}
	}
	defer e.running.Store(false)

	var mod native.Module
	if e.loader != nil {
		m, err := e.loader.Module(ctx)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeNativeUnavailable, Message: "native module handshake failed", Block: -1, Err: err}
		}
		mod = m
	}

	sink, ok := e.sink()
	if !ok {
		return nil, &RuntimeError{Code: ErrCodeNoSink, Message: "graph has no " + block.SinkID + " block", Block: -1}
	}

	res := &Result{}
	e.resetGraph()
	e.env = &interp.Env{
		Ctx:        ctx,
		Module:     mod,
		Generators: e.generators,
		Report: func(msg string) {
			res.Diagnostics = append(res.Diagnostics, msg)
			if report != nil {
				report(msg)
			}
		},
	}
	e.seedDefaults()

	e.logger.Info("run starting", "sink", sink, "blocks", len(e.graph.Blocks()), "max_pulls", e.maxPulls)

	err := e.resolveInputs(sink)
	if err == nil {
		e.finish(sink)
		res.Sink = e.inVals[sink][0]
		res.Success = res.Sink != nil
	}
	res.Pulls = e.quota.Current()
	res.Trace = e.trace.entries

	if jerr := e.journalRun(ctx, res, err); jerr != nil && err == nil {
		err = jerr
	}
	if err != nil {
		e.logger.Error("run failed", "error", err, "pulls", res.Pulls)
		return res, err
	}
	e.logger.Info("run finished", "success", res.Success, "pulls", res.Pulls, "sink", ir.Describe(res.Sink))
	return res, nil
}

// resetGraph clears every slot value, the visitation state, the stack,
// the pull counter and the run's generator set.
func (e *Engine) resetGraph() {
	n := e.graph.Size()
	e.outVals = make([][]ir.Value, n)
	e.inVals = make([][]ir.Value, n)
	e.state = make([]visit, n)
	for _, id := range e.graph.Blocks() {
		ins, outs, _ := e.graph.Arity(id)
		e.inVals[id] = make([]ir.Value, ins)
		e.outVals[id] = make([]ir.Value, outs)
	}
	e.stack = e.stack[:0]
	e.trace.reset()
	e.quota.Reset()
	e.generators.Reset()
}

// seedDefaults places declared defaults before resolution starts. Input
// defaults go only where no wire will deliver a value: unconnected inputs
// and inputs closing a cycle.
func (e *Engine) seedDefaults() {
	closing := make(map[graph.Peer]bool)
	for _, c := range e.graph.Cycles() {
		for _, in := range e.graph.InternalInputs(c) {
			closing[in] = true
		}
	}

	for _, id := range e.graph.Blocks() {
		decl := e.blocks[id].def.Decl
		for i, p := range decl.Inputs {
			if p.Default == nil {
				continue
			}
			// A wire from outside any cycle always wins over the default.
			if _, wired := e.graph.ConnectedBlock(id, i); wired && !closing[graph.Peer{Block: id, Port: i}] {
				continue
			}
			e.inVals[id][i] = p.Default
		}
		for i, p := range decl.Outputs {
			if p.Default != nil {
				e.outVals[id][i] = p.Default
			}
		}
	}
}

// resolveInputs fills the empty inputs of id by pulling their producers.
//
// A producer is pulled until the wired output holds a value. The one
// exception is a producer already in progress further up the stack with
// an optional input: that is a genuine cycle, and the input falls back to
// its default instead. Taking a value empties the producer's output.
func (e *Engine) resolveInputs(id int) error {
	e.state[id] = inProgress
	e.stack = append(e.stack, id)

	decl := e.blocks[id].def.Decl
	for i, p := range decl.Inputs {
		if e.inVals[id][i] != nil {
			continue
		}
		if peer, ok := e.graph.ConnectedBlock(id, i); ok {
			for e.outVals[peer.Block][peer.Port] == nil {
				if e.state[peer.Block] == inProgress && !p.IsRequired() {
					break
				}
				if err := e.resolveOutputs(peer.Block); err != nil {
					return err
				}
			}
			if v := e.outVals[peer.Block][peer.Port]; v != nil {
				e.inVals[id][i] = v
				e.outVals[peer.Block][peer.Port] = nil
				continue
			}
		}
		if p.Default != nil {
			e.env.Warn("%s input %d has no value, using default %s", e.name(id), i, p.Default)
			e.inVals[id][i] = p.Default
		}
	}
	return nil
}

// resolveOutputs pulls block id once: inputs, resolver, outputs.
func (e *Engine) resolveOutputs(id int) error {
	inst := e.blocks[id]
	defID := inst.def.ID()

	if err := e.quota.Check(defID); err != nil {
		var pe *PullsExceededError
		if errors.As(err, &pe) {
			return NewQuotaError(id, defID, pe)
		}
		return err
	}

	if err := e.resolveInputs(id); err != nil {
		return err
	}

	outs, err := e.invoke(inst, e.inVals[id])
	if err != nil {
		return NewResolverError(id, defID, err)
	}
	if len(outs) != len(e.outVals[id]) {
		return NewResolverError(id, defID, fmt.Errorf("resolver returned %d outputs, want %d", len(outs), len(e.outVals[id])))
	}
	for i, v := range outs {
		if v != nil {
			e.outVals[id][i] = v
		}
	}
	clear(e.inVals[id])

	entry := e.trace.record(id, defID, slices.Clone(outs))
	e.logger.Debug("block resolved", "block", id, "def", defID, "seq", entry.Seq)

	e.finish(id)
	return nil
}

func (e *Engine) finish(id int) {
	e.state[id] = done
	e.stack = e.stack[:len(e.stack)-1]
}

// invoke runs the behaviour of one block. Built-in kinds that only move
// values are handled here; everything else goes through the resolver.
func (e *Engine) invoke(inst *instance, inputs []ir.Value) ([]ir.Value, error) {
	def := inst.def
	inputs = slices.Clone(inputs)

	switch def.Kind {
	case block.KindSource, block.KindConstant:
		v, err := def.Literal(inst.literal)
		if err != nil {
			return nil, err
		}
		return []ir.Value{v}, nil

	case block.KindObserver:
		for _, v := range inputs {
			e.env.Info("%s observed a value of: %s", def.Decl.Label, ir.Describe(v))
		}
		return inputs, nil

	case block.KindSink:
		return nil, fmt.Errorf("%s has no outputs to resolve", def.ID())
	}

	if def.Resolve == nil {
		return nil, fmt.Errorf("%s has no resolver", def.ID())
	}
	return def.Resolve(e.env, inputs)
}

// journalRun records res when the engine has a journal.
func (e *Engine) journalRun(ctx context.Context, res *Result, runErr error) error {
	if e.journal == nil {
		return nil
	}
	res.RunID = e.runIDs.Generate()

	run := store.Run{
		ID:          res.RunID,
		Success:     res.Success,
		Pulls:       res.Pulls,
		Sink:        res.Sink,
		Diagnostics: res.Diagnostics,
		Trace:       make([]store.Step, len(res.Trace)),
	}
	for i, t := range res.Trace {
		run.Trace[i] = store.Step{Seq: t.Seq, Block: t.Block, Name: t.Name, Outputs: t.Outputs}
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if _, err := e.journal.WriteRun(ctx, run); err != nil {
		e.logger.Error("journal write failed", "run", res.RunID, "error", err)
		return fmt.Errorf("journal run %s: %w", res.RunID, err)
	}
	e.logger.Debug("run journaled", "run", res.RunID)
	return nil
}
