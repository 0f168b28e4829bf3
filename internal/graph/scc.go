package graph

import "sort"

// Cycle is a strongly connected set of blocks: every block in it can
// reach every other one through wires. Blocks are in ascending order.
type Cycle struct {
	Blocks []int
}

// Contains reports whether block is part of the cycle.
func (c Cycle) Contains(block int) bool {
	i := sort.SearchInts(c.Blocks, block)
	return i < len(c.Blocks) && c.Blocks[i] == block
}

// Cycles finds the feedback loops of the graph with Tarjan's algorithm.
// A single block is only a cycle when one of its outputs feeds itself.
// Results are ordered by their lowest block id.
func (g *PortGraph) Cycles() []Cycle {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		cycles  []Cycle
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, p := range g.nodes[v].out {
			if !p.Connected() {
				continue
			}
			w := p.Block
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || g.feedsItself(v) {
			sort.Ints(scc)
			cycles = append(cycles, Cycle{Blocks: scc})
		}
	}

	for _, id := range g.Blocks() {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Blocks[0] < cycles[j].Blocks[0] })
	return cycles
}

func (g *PortGraph) feedsItself(block int) bool {
	for _, p := range g.nodes[block].out {
		if p.Block == block {
			return true
		}
	}
	return false
}

// InternalInputs returns the inputs of blocks in c that are fed from
// inside c, in block and port order. Every loop through c enters at least
// one of them.
func (g *PortGraph) InternalInputs(c Cycle) []Peer {
	var inputs []Peer
	for _, b := range c.Blocks {
		for i, p := range g.nodes[b].in {
			if p.Connected() && c.Contains(p.Block) {
				inputs = append(inputs, Peer{Block: b, Port: i})
			}
		}
	}
	return inputs
}

// LoopsWithout reports whether c still contains a loop once the wires into
// the inputs cut selects are removed. A false result means every loop in
// c, nested ones included, passes through at least one cut input.
func (g *PortGraph) LoopsWithout(c Cycle, cut func(in Peer) bool) bool {
	const (
		unvisited = iota
		onPath
		finished
	)
	state := make(map[int]int, len(c.Blocks))

	var visit func(b int) bool
	visit = func(b int) bool {
		state[b] = onPath
		for _, p := range g.nodes[b].out {
			if !p.Connected() || !c.Contains(p.Block) || cut(p) {
				continue
			}
			switch state[p.Block] {
			case onPath:
				return true
			case unvisited:
				if visit(p.Block) {
					return true
				}
			}
		}
		state[b] = finished
		return false
	}

	for _, b := range c.Blocks {
		if state[b] == unvisited && visit(b) {
			return true
		}
	}
	return false
}
