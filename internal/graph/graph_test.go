package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkMirrored fails the test if any slot's peer does not point back.
func checkMirrored(t *testing.T, g *PortGraph) {
	t.Helper()
	for id, n := range g.nodes {
		if n == nil {
			continue
		}
		for i, p := range n.out {
			if p.Connected() {
				require.True(t, g.Exists(p.Block), "output %d.%d points at removed block %d", id, i, p.Block)
				assert.Equal(t, Peer{id, i}, g.nodes[p.Block].in[p.Port], "output %d.%d", id, i)
			}
		}
		for i, p := range n.in {
			if p.Connected() {
				require.True(t, g.Exists(p.Block), "input %d.%d points at removed block %d", id, i, p.Block)
				assert.Equal(t, Peer{id, i}, g.nodes[p.Block].out[p.Port], "input %d.%d", id, i)
			}
		}
	}
}

// ============================================================================
// Elements
// ============================================================================

func TestAddElement_ReusesTombstones(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(1, 0)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	require.True(t, g.RemoveElement(a))
	assert.Equal(t, 0, g.AddElement(2, 2))
	assert.Equal(t, 2, g.AddElement(0, 0))
}

func TestAddElementAt_PadsAndCollides(t *testing.T) {
	g := New()
	id, err := g.AddElementAt(3, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, 4, g.Size())
	assert.Equal(t, []int{3}, g.Blocks())
	assert.False(t, g.Exists(1))

	_, err = g.AddElementAt(3, 1, 1)
	assert.True(t, errors.Is(err, ErrGraphCollision))

	_, err = g.AddElementAt(-1, 1, 1)
	assert.True(t, errors.Is(err, ErrOutOfBoundGraph))
}

func TestRemoveElement_OutOfRange(t *testing.T) {
	g := New()
	assert.False(t, g.RemoveElement(0))
	g.AddElement(0, 0)
	assert.True(t, g.RemoveElement(0))
	assert.False(t, g.RemoveElement(0), "already removed")
}

func TestRemoveElement_NoDanglingReferences(t *testing.T) {
	g := New()
	a := g.AddElement(1, 2)
	b := g.AddElement(1, 2)
	c := g.AddElement(2, 0)
	require.NoError(t, g.AddEdge(a, b, 0, 0))
	require.NoError(t, g.AddEdge(a, c, 1, 0))
	require.NoError(t, g.AddEdge(b, c, 0, 1))
	require.NoError(t, g.AddEdge(b, a, 1, 0))

	require.True(t, g.RemoveElement(a))
	checkMirrored(t, g)

	for _, id := range g.Blocks() {
		for _, p := range g.ConnectedBlocks(id) {
			assert.NotEqual(t, a, p.Block)
		}
	}
	p, _ := g.InputPeer(b, 0)
	assert.Equal(t, Unconnected, p)
}

// ============================================================================
// Edges
// ============================================================================

func TestAddEdge_Symmetry(t *testing.T) {
	g := New()
	a := g.AddElement(0, 2)
	b := g.AddElement(3, 0)

	require.NoError(t, g.AddEdge(a, b, 1, 2))

	p, ok := g.ConnectedBlock(b, 2)
	require.True(t, ok)
	assert.Equal(t, Peer{Block: a, Port: 1}, p)
	assert.Contains(t, g.ConnectedOutputs(a), 1)
	assert.Equal(t, []Peer{{Block: a, Port: 1}}, g.ConnectedBlocks(b))
	checkMirrored(t, g)
}

func TestAddEdge_RemoveEdgeRoundTrip(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(1, 0)

	require.NoError(t, g.AddEdge(a, b, 0, 0))
	require.NoError(t, g.RemoveEdge(a, 0))

	out, _ := g.OutputPeer(a, 0)
	in, _ := g.InputPeer(b, 0)
	assert.Equal(t, Unconnected, out)
	assert.Equal(t, Unconnected, in)

	// Removing again is a no-op
	assert.NoError(t, g.RemoveEdge(a, 0))
}

func TestAddEdge_Errors(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(1, 0)
	removed := g.AddElement(1, 1)
	require.True(t, g.RemoveElement(removed))

	tests := []struct {
		name             string
		from, to, out, in int
		want             error
	}{
		{"source out of graph", 9, b, 0, 0, ErrOutOfBoundGraph},
		{"target out of graph", a, -1, 0, 0, ErrOutOfBoundGraph},
		{"removed block", a, removed, 0, 0, ErrIndex},
		{"bad output", a, b, 1, 0, ErrOutOfBoundBucket},
		{"bad input", a, b, 0, 1, ErrOutOfBoundBucket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.from, tt.to, tt.out, tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var ge *GraphError
			assert.True(t, errors.As(err, &ge))
		})
	}
}

func TestAddEdge_Impossible(t *testing.T) {
	g := New()
	a := g.AddElement(0, 2)
	b := g.AddElement(1, 0)
	require.NoError(t, g.DisallowOutput(a, 1))

	err := g.AddEdge(a, b, 1, 0)
	assert.True(t, errors.Is(err, ErrImpossibleEdge))
	assert.Empty(t, g.ConnectedOutputs(a))
}

func TestAddEdge_DoubleEdge(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(0, 1)
	c := g.AddElement(1, 0)
	d := g.AddElement(1, 0)
	require.NoError(t, g.AddEdge(a, c, 0, 0))
	require.NoError(t, g.AddEdge(b, d, 0, 0))

	// Identical edge is tolerated
	require.NoError(t, g.AddEdge(a, c, 0, 0))

	err := g.AddEdge(a, d, 0, 0)
	assert.True(t, errors.Is(err, ErrDoubleEdge))
	checkMirrored(t, g)
}

func TestAddEdge_RewiresOneEnd(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(1, 0)
	c := g.AddElement(1, 0)
	require.NoError(t, g.AddEdge(a, b, 0, 0))

	// Dragging the wire end from b to c detaches b
	require.NoError(t, g.AddEdge(a, c, 0, 0))
	checkMirrored(t, g)

	_, ok := g.ConnectedBlock(b, 0)
	assert.False(t, ok)
	p, ok := g.ConnectedBlock(c, 0)
	require.True(t, ok)
	assert.Equal(t, Peer{Block: a, Port: 0}, p)
}

func TestUnconnectedInputs(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(3, 0)
	require.NoError(t, g.AddEdge(a, b, 0, 1))

	want := []Missing{{Block: b, Ports: []int{0, 2}}}
	if diff := cmp.Diff(want, g.UnconnectedInputs()); diff != "" {
		t.Errorf("UnconnectedInputs mismatch (-want +got):\n%s", diff)
	}
}

func TestArity(t *testing.T) {
	g := New()
	id := g.AddElement(2, 3)
	in, out, ok := g.Arity(id)
	assert.True(t, ok)
	assert.Equal(t, 2, in)
	assert.Equal(t, 3, out)

	_, _, ok = g.Arity(5)
	assert.False(t, ok)
}

// ============================================================================
// Cycles
// ============================================================================

func TestCycles_DAG(t *testing.T) {
	g := New()
	a := g.AddElement(0, 1)
	b := g.AddElement(1, 1)
	c := g.AddElement(1, 0)
	require.NoError(t, g.AddEdge(a, b, 0, 0))
	require.NoError(t, g.AddEdge(b, c, 0, 0))

	assert.Empty(t, g.Cycles())
}

func TestCycles_SelfLoop(t *testing.T) {
	g := New()
	loop := g.AddElement(2, 2)
	sink := g.AddElement(1, 0)
	require.NoError(t, g.AddEdge(loop, loop, 0, 1))
	require.NoError(t, g.AddEdge(loop, sink, 1, 0))

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []int{loop}, cycles[0].Blocks)
	assert.Equal(t, []Peer{{Block: loop, Port: 1}}, g.InternalInputs(cycles[0]))
}

func TestCycles_MultiBlock(t *testing.T) {
	g := New()
	src := g.AddElement(0, 1)
	x := g.AddElement(2, 1)
	y := g.AddElement(1, 2)
	sink := g.AddElement(1, 0)
	require.NoError(t, g.AddEdge(src, x, 0, 0))
	require.NoError(t, g.AddEdge(x, y, 0, 0))
	require.NoError(t, g.AddEdge(y, x, 0, 1))
	require.NoError(t, g.AddEdge(y, sink, 1, 0))

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []int{x, y}, cycles[0].Blocks)
	assert.True(t, cycles[0].Contains(y))
	assert.False(t, cycles[0].Contains(src))
	assert.Equal(t, []Peer{{Block: x, Port: 1}, {Block: y, Port: 0}}, g.InternalInputs(cycles[0]))
}

func TestLoopsWithout(t *testing.T) {
	// x <-> y and y <-> z: two loops sharing y, one strongly connected set.
	g := New()
	x := g.AddElement(1, 1)
	y := g.AddElement(2, 2)
	z := g.AddElement(1, 1)
	require.NoError(t, g.AddEdge(x, y, 0, 0))
	require.NoError(t, g.AddEdge(y, x, 0, 0))
	require.NoError(t, g.AddEdge(y, z, 1, 0))
	require.NoError(t, g.AddEdge(z, y, 0, 1))

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	c := cycles[0]
	require.Equal(t, []int{x, y, z}, c.Blocks)

	cutAt := func(ins ...Peer) func(Peer) bool {
		return func(in Peer) bool {
			for _, p := range ins {
				if p == in {
					return true
				}
			}
			return false
		}
	}

	assert.True(t, g.LoopsWithout(c, cutAt()), "nothing cut")
	assert.True(t, g.LoopsWithout(c, cutAt(Peer{Block: x, Port: 0})), "only the x loop is cut")
	assert.True(t, g.LoopsWithout(c, cutAt(Peer{Block: y, Port: 1})), "only the z loop is cut")
	assert.False(t, g.LoopsWithout(c, cutAt(Peer{Block: x, Port: 0}, Peer{Block: y, Port: 1})))
	assert.False(t, g.LoopsWithout(c, cutAt(Peer{Block: y, Port: 0}, Peer{Block: y, Port: 1})), "both loops enter y")
}

func TestLoopsWithout_SelfLoop(t *testing.T) {
	g := New()
	loop := g.AddElement(2, 2)
	require.NoError(t, g.AddEdge(loop, loop, 0, 1))

	c := g.Cycles()[0]
	assert.True(t, g.LoopsWithout(c, func(Peer) bool { return false }))
	assert.False(t, g.LoopsWithout(c, func(in Peer) bool { return in == Peer{Block: loop, Port: 1} }))
}
