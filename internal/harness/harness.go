package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/compiler"
	"github.com/roach88/cipherflow/internal/engine"
	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/native"
	"github.com/roach88/cipherflow/internal/store"
	"github.com/roach88/cipherflow/internal/testutil"
)

// Harness executes one scenario on a fresh engine and journal.
type Harness struct {
	engine   *engine.Engine
	recorder *testutil.Recorder
	logger   *slog.Logger
}

// Option configures a harness run.
type Option func(*config)

type config struct {
	loader *native.Loader
	logger *slog.Logger
}

// WithLoader runs scenarios against another native module.
func WithLoader(l *native.Loader) Option {
	return func(c *config) { c.loader = l }
}

// WithLogger sets the engine logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the standard library and the scenario's own library
// 2. Place blocks, set literals, connect wires
// 3. Verify, then resolve the graph
// 4. Check the expectations and evaluate assertions
//
// An error is returned only when the scenario cannot be set up; a run
// that fails its expectations returns a result with Pass false.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		loader: native.StdLoader(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	lib, err := Library(scenario)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	engOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithJournal(st),
		engine.WithRunIDs(engine.NewFixedGenerator(runID)),
	}
	if scenario.MaxPulls > 0 {
		engOpts = append(engOpts, engine.WithMaxPulls(scenario.MaxPulls))
	}

	h := &Harness{
		engine:   engine.New(lib, cfg.loader, engOpts...),
		recorder: testutil.NewRecorder(),
		logger:   cfg.logger,
	}

	if err := Build(h.engine, scenario); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	ctx := context.Background()
	result := h.execute(ctx)
	checkExpect(scenario.Expect, result)

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: runID}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// Library returns the standard library plus the blocks declared in the
// scenario's library directory, if it names one.
func Library(s *Scenario) (*block.Library, error) {
	lib, err := block.Standard()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard library: %w", err)
	}
	if s.Library != "" {
		if err := lib.LoadDir(s.Library, compiler.LoadModeFailFast); err != nil {
			return nil, fmt.Errorf("failed to load library %s: %w", s.Library, err)
		}
	}
	return lib, nil
}

// Build places the scenario's blocks on e, sets their literals and
// connects the wires. Literals are not checked here; Verify reports bad
// ones.
func Build(e *engine.Engine, s *Scenario) error {
	for i, step := range s.Blocks {
		var id int
		if step.ID != nil {
			id = *step.ID
			if err := e.AddBlockAt(id, step.Block); err != nil {
				return fmt.Errorf("blocks[%d]: %w", i, err)
			}
		} else {
			var err error
			if id, err = e.AddBlock(step.Block); err != nil {
				return fmt.Errorf("blocks[%d]: %w", i, err)
			}
		}
		if step.Literal != nil {
			if err := e.SetLiteral(id, *step.Literal); err != nil {
				return fmt.Errorf("blocks[%d]: %w", i, err)
			}
		}
	}

	for i, w := range s.Wires {
		if err := e.Connect(w.From.Block, w.From.Port, w.To.Block, w.To.Port); err != nil {
			return fmt.Errorf("wires[%d]: %w", i, err)
		}
	}
	return nil
}

// execute verifies and runs the graph and records what happened.
func (h *Harness) execute(ctx context.Context) *Result {
	result := NewResult()
	result.Problems = h.engine.Verify()

	res, err := h.engine.ResolveGraph(ctx, h.recorder.Report)
	if res != nil {
		result.RunID = res.RunID
		result.Success = res.Success && err == nil
		result.Sink = ir.Describe(res.Sink)
		result.Diagnostics = res.Diagnostics
		for _, entry := range res.Trace {
			result.Trace = append(result.Trace, traceEvent(entry))
		}
	} else {
		result.Sink = ir.Describe(nil)
	}

	if err != nil {
		var rerr *engine.RuntimeError
		if errors.As(err, &rerr) {
			result.ErrorCode = string(rerr.Code)
		}
		// Diagnostics reported before the failure still count.
		if res == nil {
			result.Diagnostics = h.recorder.Messages()
		}
		result.Diagnostics = append(result.Diagnostics, "[ERROR] "+err.Error())
	}

	h.logger.Info("scenario run completed",
		"run_id", result.RunID,
		"pulls", len(result.Trace),
		"error_code", result.ErrorCode,
	)
	return result
}

func traceEvent(entry engine.TraceEntry) TraceEvent {
	outputs := make([]string, len(entry.Outputs))
	for i, v := range entry.Outputs {
		outputs[i] = ir.Describe(v)
	}
	return TraceEvent{Seq: entry.Seq, Block: entry.Block, Name: entry.Name, Outputs: outputs}
}

// checkExpect compares the run outcome with the scenario's expect clause.
func checkExpect(exp Expect, result *Result) {
	wantSuccess := exp.Error == ""
	if exp.Success != nil {
		wantSuccess = *exp.Success
	}
	if result.Success != wantSuccess {
		result.AddError(fmt.Sprintf("expected success=%t, got success=%t (%s)", wantSuccess, result.Success, lastDiagnostic(result)))
	}

	if exp.Error != "" && result.ErrorCode != exp.Error {
		result.AddError(fmt.Sprintf("expected error %s, got %q", exp.Error, result.ErrorCode))
	}

	if exp.Sink != nil {
		want, err := ir.FromAny(exp.Sink)
		if err != nil {
			result.AddError(fmt.Sprintf("expect.sink: %v", err))
		} else if !sinkMatches(want, result.Sink) {
			result.AddError(fmt.Sprintf("expected sink %s, got %s", ir.Describe(want), result.Sink))
		}
	}

	if exp.Pulls != nil && len(result.Trace) != *exp.Pulls {
		result.AddError(fmt.Sprintf("expected %d pulls, got %d", *exp.Pulls, len(result.Trace)))
	}
	if exp.Warnings != nil {
		if got := result.Warnings(); len(got) != *exp.Warnings {
			result.AddError(fmt.Sprintf("expected %d warnings, got %d: %v", *exp.Warnings, len(got), got))
		}
	}

	if exp.VerifyClean && len(result.Problems) > 0 {
		result.AddError(fmt.Sprintf("expected a clean verify, got %v", result.Problems))
	}
	for _, want := range exp.Verify {
		if !anyContains(result.Problems, want) {
			result.AddError(fmt.Sprintf("expected a verify problem containing %q, got %v", want, result.Problems))
		}
	}
}

// sinkMatches compares an expected sink with the rendered actual one.
// Text and bytes with the same content are the same message.
func sinkMatches(want ir.Value, got string) bool {
	if ir.Describe(want) == got {
		return true
	}
	b, err := ir.ToBytes(want)
	if err != nil {
		return false
	}
	return ir.Describe(ir.Bytes(b)) == got
}

func lastDiagnostic(r *Result) string {
	if len(r.Diagnostics) == 0 {
		return "no diagnostics"
	}
	return r.Diagnostics[len(r.Diagnostics)-1]
}
