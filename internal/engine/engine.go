package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/cipherflow/internal/block"
	"github.com/roach88/cipherflow/internal/cryptoprim"
	"github.com/roach88/cipherflow/internal/graph"
	"github.com/roach88/cipherflow/internal/interp"
	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/native"
	"github.com/roach88/cipherflow/internal/store"
)

// DefaultMaxPulls is the default maximum number of block pulls per run.
// It stops graphs whose cycles never produce a value.
const DefaultMaxPulls = 10000

// Reporter receives non-fatal diagnostics during a run. Messages are
// prefixed "[WARNING]", "[ERROR]" or "[INFO]"; the prefix is advisory.
type Reporter func(msg string)

// visit is the per-run visitation state of a block.
type visit uint8

const (
	unvisited visit = iota
	inProgress
	done
)

// instance is a block placed in the graph.
type instance struct {
	def     *block.Definition
	literal string
}

// Engine owns one graph of blocks and resolves it on demand.
//
// Edits (AddBlock, Connect, ...) and runs must come from one goroutine.
// A second ResolveGraph while one is running fails with
// ErrCodeRunInProgress instead of corrupting the slot values.
type Engine struct {
	lib     *block.Library
	loader  *native.Loader
	graph   *graph.PortGraph
	blocks  []*instance // indexed by graph id, nil for tombstones
	logger  *slog.Logger
	journal *store.Store
	runIDs  RunIDGenerator
	running atomic.Bool

	maxPulls int

	// Per-run state, cleared by resetGraph.
	outVals    [][]ir.Value
	inVals     [][]ir.Value
	state      []visit
	stack      []int
	quota      *QuotaEnforcer
	generators *cryptoprim.GeneratorSet
	trace      traceLog
	env        *interp.Env
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxPulls sets the pull quota per run.
//
// Default: 10000 pulls (DefaultMaxPulls)
func WithMaxPulls(maxPulls int) Option {
	return func(e *Engine) {
		e.maxPulls = maxPulls
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithJournal records every run in s.
func WithJournal(s *store.Store) Option {
	return func(e *Engine) {
		e.journal = s
	}
}

// WithRunIDs sets the generator naming journaled runs.
// Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = gen
	}
}

// New creates an engine over lib with an empty graph. The loader is asked
// for the native module on the first run; a nil loader means library
// blocks that need native functions will fail.
func New(lib *block.Library, loader *native.Loader, opts ...Option) *Engine {
	e := &Engine{
		lib:        lib,
		loader:     loader,
		graph:      graph.New(),
		logger:     slog.Default(),
		runIDs:     UUIDv7Generator{},
		maxPulls:   DefaultMaxPulls,
		generators: cryptoprim.NewGeneratorSet(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.quota = NewQuotaEnforcer(e.maxPulls)
	return e
}

// Library returns the block library the engine instantiates from.
func (e *Engine) Library() *block.Library {
	return e.lib
}

// AddBlock places a new instance of the definition defID in the first
// free id and returns the id.
func (e *Engine) AddBlock(defID string) (int, error) {
	def, err := e.definition(defID)
	if err != nil {
		return 0, err
	}
	id := e.graph.AddElement(len(def.Decl.Inputs), len(def.Decl.Outputs))
	e.place(id, def)
	return id, nil
}

// AddBlockAt places a new instance of defID at a chosen id.
func (e *Engine) AddBlockAt(id int, defID string) error {
	def, err := e.definition(defID)
	if err != nil {
		return err
	}
	if _, err := e.graph.AddElementAt(id, len(def.Decl.Inputs), len(def.Decl.Outputs)); err != nil {
		return err
	}
	e.place(id, def)
	return nil
}

func (e *Engine) definition(defID string) (*block.Definition, error) {
	def, ok := e.lib.Lookup(defID)
	if !ok {
		return nil, NewMissingBlockError(-1, "no block definition %q", defID)
	}
	return def, nil
}

func (e *Engine) place(id int, def *block.Definition) {
	for len(e.blocks) <= id {
		e.blocks = append(e.blocks, nil)
	}
	e.blocks[id] = &instance{def: def}
	for i, p := range def.Decl.Outputs {
		if p.Internal {
			// The node was just created, so the output exists.
			_ = e.graph.DisallowOutput(id, i)
		}
	}
	e.logger.Debug("block added", "block", id, "def", def.ID())
}

// RemoveBlock deletes a block and every wire touching it. It returns
// false when there is no such block.
func (e *Engine) RemoveBlock(id int) bool {
	if !e.graph.RemoveElement(id) {
		return false
	}
	e.blocks[id] = nil
	e.logger.Debug("block removed", "block", id)
	return true
}

// Connect wires output out of block from to input in of block to.
func (e *Engine) Connect(from, out, to, in int) error {
	if err := e.graph.AddEdge(from, to, out, in); err != nil {
		return err
	}
	e.logger.Debug("wire added", "from", from, "out", out, "to", to, "in", in)
	return nil
}

// Disconnect removes the wire leaving output out of block id.
func (e *Engine) Disconnect(id, out int) error {
	return e.graph.RemoveEdge(id, out)
}

// SetLiteral sets the message of a source or the value of a constant.
// The literal is checked by Verify, not here, so that a half-typed
// value can be stored.
func (e *Engine) SetLiteral(id int, literal string) error {
	inst, err := e.instance(id)
	if err != nil {
		return err
	}
	if !inst.def.Kind.HasLiteral() {
		return fmt.Errorf("block %d (%s) takes no literal", id, inst.def.ID())
	}
	inst.literal = literal
	return nil
}

// Definition returns the definition behind block id.
func (e *Engine) Definition(id int) (*block.Definition, bool) {
	inst, err := e.instance(id)
	if err != nil {
		return nil, false
	}
	return inst.def, true
}

// Blocks returns the live block ids in ascending order.
func (e *Engine) Blocks() []int {
	return e.graph.Blocks()
}

// Graph exposes the wiring for read-only inspection.
func (e *Engine) Graph() *graph.PortGraph {
	return e.graph
}

// InputValue returns the value currently held at an input slot. Inputs
// are cleared once their block has been resolved, so after a run only
// the sink still holds its input.
func (e *Engine) InputValue(id, in int) ir.Value {
	if id < 0 || id >= len(e.inVals) || in < 0 || in >= len(e.inVals[id]) {
		return nil
	}
	return e.inVals[id][in]
}

// OutputValue returns the value waiting at an output slot.
func (e *Engine) OutputValue(id, out int) ir.Value {
	if id < 0 || id >= len(e.outVals) || out < 0 || out >= len(e.outVals[id]) {
		return nil
	}
	return e.outVals[id][out]
}

func (e *Engine) instance(id int) (*instance, error) {
	if id < 0 || id >= len(e.blocks) || e.blocks[id] == nil {
		return nil, NewMissingBlockError(id, "no block %d", id)
	}
	return e.blocks[id], nil
}

func (e *Engine) name(id int) string {
	return fmt.Sprintf("block %d (%s)", id, e.blocks[id].def.ID())
}

// sink returns the lowest-id sink block.
func (e *Engine) sink() (int, bool) {
	sinks := e.blocksOfKind(block.KindSink)
	if len(sinks) == 0 {
		return 0, false
	}
	return sinks[0], true
}

func (e *Engine) blocksOfKind(kind block.Kind) []int {
	var ids []int
	for _, id := range e.graph.Blocks() {
		if e.blocks[id].def.Kind == kind {
			ids = append(ids, id)
		}
	}
	return ids
}
