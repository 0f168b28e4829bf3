package graph

// Peer is one end of an edge as seen from the other end: the block and
// port index on the far side.
type Peer struct {
	Block int `json:"block"`
	Port  int `json:"port"`
}

// Slot sentinels.
var (
	Unconnected = Peer{Block: -1, Port: -1}
	Impossible  = Peer{Block: -2, Port: -2}
)

// Connected reports whether p refers to a real port.
func (p Peer) Connected() bool {
	return p.Block >= 0
}

type node struct {
	in  []Peer
	out []Peer
}

// Missing lists the unconnected inputs of one block.
type Missing struct {
	Block int
	Ports []int
}

// PortGraph is the wiring of a graph of blocks.
//
// Every block has a fixed number of input and output slots. A connected
// slot names its peer, and the two ends always mirror each other:
// out[a][i] == {b, j} exactly when in[b][j] == {a, i}. Removed blocks
// leave a tombstone so that block ids stay stable.
type PortGraph struct {
	nodes []*node
}

// New creates an empty graph.
func New() *PortGraph {
	return &PortGraph{}
}

func newNode(inputs, outputs int) *node {
	n := &node{in: make([]Peer, inputs), out: make([]Peer, outputs)}
	for i := range n.in {
		n.in[i] = Unconnected
	}
	for i := range n.out {
		n.out[i] = Unconnected
	}
	return n
}

// AddElement adds a block in the first free id and returns the id.
func (g *PortGraph) AddElement(inputs, outputs int) int {
	for id, n := range g.nodes {
		if n == nil {
			g.nodes[id] = newNode(inputs, outputs)
			return id
		}
	}
	g.nodes = append(g.nodes, newNode(inputs, outputs))
	return len(g.nodes) - 1
}

// AddElementAt adds a block with a chosen id. Ids past the end are
// reached by padding with tombstones.
func (g *PortGraph) AddElementAt(id, inputs, outputs int) (int, error) {
	if id < 0 {
		return 0, fail(ErrOutOfBoundGraph, "block %d", id)
	}
	for len(g.nodes) <= id {
		g.nodes = append(g.nodes, nil)
	}
	if g.nodes[id] != nil {
		return 0, fail(ErrGraphCollision, "block %d already exists", id)
	}
	g.nodes[id] = newNode(inputs, outputs)
	return id, nil
}

// RemoveElement deletes a block and disconnects every edge touching it.
// It returns false when there is no such block.
func (g *PortGraph) RemoveElement(id int) bool {
	if !g.Exists(id) {
		return false
	}
	n := g.nodes[id]
	for _, p := range n.out {
		if p.Connected() {
			g.nodes[p.Block].in[p.Port] = Unconnected
		}
	}
	for _, p := range n.in {
		if p.Connected() {
			g.nodes[p.Block].out[p.Port] = Unconnected
		}
	}
	g.nodes[id] = nil
	return true
}

func (g *PortGraph) lookup(id int) (*node, error) {
	if id < 0 || id >= len(g.nodes) {
		return nil, fail(ErrOutOfBoundGraph, "block %d of %d", id, len(g.nodes))
	}
	if g.nodes[id] == nil {
		return nil, fail(ErrIndex, "block %d was removed", id)
	}
	return g.nodes[id], nil
}

// AddEdge wires output port out of block from to input port in of block to.
//
// Re-adding an existing edge is a no-op. When only one end is already
// wired elsewhere, that old edge is detached first; when both are,
// ErrDoubleEdge is returned.
func (g *PortGraph) AddEdge(from, to, out, in int) error {
	src, err := g.lookup(from)
	if err != nil {
		return err
	}
	dst, err := g.lookup(to)
	if err != nil {
		return err
	}
	if out < 0 || out >= len(src.out) {
		return fail(ErrOutOfBoundBucket, "block %d has no output %d", from, out)
	}
	if in < 0 || in >= len(dst.in) {
		return fail(ErrOutOfBoundBucket, "block %d has no input %d", to, in)
	}

	cur, curIn := src.out[out], dst.in[in]
	if cur == Impossible || curIn == Impossible {
		return fail(ErrImpossibleEdge, "%d.%d -> %d.%d", from, out, to, in)
	}
	want, wantIn := Peer{Block: to, Port: in}, Peer{Block: from, Port: out}
	if cur == want && curIn == wantIn {
		return nil
	}
	if cur.Connected() && curIn.Connected() {
		return fail(ErrDoubleEdge, "output %d.%d and input %d.%d are both wired", from, out, to, in)
	}
	if cur.Connected() {
		g.nodes[cur.Block].in[cur.Port] = Unconnected
	}
	if curIn.Connected() {
		g.nodes[curIn.Block].out[curIn.Port] = Unconnected
	}
	src.out[out], dst.in[in] = want, wantIn
	return nil
}

// RemoveEdge disconnects output port out of block. Unconnected ports are
// left alone.
func (g *PortGraph) RemoveEdge(block, out int) error {
	n, err := g.lookup(block)
	if err != nil {
		return err
	}
	if out < 0 || out >= len(n.out) {
		return fail(ErrOutOfBoundBucket, "block %d has no output %d", block, out)
	}
	p := n.out[out]
	if !p.Connected() {
		return nil
	}
	g.nodes[p.Block].in[p.Port] = Unconnected
	n.out[out] = Unconnected
	return nil
}

// DisallowOutput marks an output that may never be wired.
func (g *PortGraph) DisallowOutput(block, out int) error {
	if err := g.RemoveEdge(block, out); err != nil {
		return err
	}
	g.nodes[block].out[out] = Impossible
	return nil
}

// InputPeer returns the slot entry of an input port.
func (g *PortGraph) InputPeer(block, in int) (Peer, error) {
	n, err := g.lookup(block)
	if err != nil {
		return Unconnected, err
	}
	if in < 0 || in >= len(n.in) {
		return Unconnected, fail(ErrOutOfBoundBucket, "block %d has no input %d", block, in)
	}
	return n.in[in], nil
}

// OutputPeer returns the slot entry of an output port.
func (g *PortGraph) OutputPeer(block, out int) (Peer, error) {
	n, err := g.lookup(block)
	if err != nil {
		return Unconnected, err
	}
	if out < 0 || out >= len(n.out) {
		return Unconnected, fail(ErrOutOfBoundBucket, "block %d has no output %d", block, out)
	}
	return n.out[out], nil
}

// ConnectedOutputs returns the wired output ports of block.
func (g *PortGraph) ConnectedOutputs(block int) []int {
	n, err := g.lookup(block)
	if err != nil {
		return nil
	}
	var ports []int
	for i, p := range n.out {
		if p.Connected() {
			ports = append(ports, i)
		}
	}
	return ports
}

// ConnectedBlocks returns the producers wired into the inputs of block,
// in input order.
func (g *PortGraph) ConnectedBlocks(block int) []Peer {
	n, err := g.lookup(block)
	if err != nil {
		return nil
	}
	var peers []Peer
	for _, p := range n.in {
		if p.Connected() {
			peers = append(peers, p)
		}
	}
	return peers
}

// ConnectedBlock returns the producer wired into one input.
func (g *PortGraph) ConnectedBlock(block, in int) (Peer, bool) {
	p, err := g.InputPeer(block, in)
	if err != nil || !p.Connected() {
		return Unconnected, false
	}
	return p, true
}

// UnconnectedInputs lists, per block, the inputs with nothing wired in.
func (g *PortGraph) UnconnectedInputs() []Missing {
	var missing []Missing
	for id, n := range g.nodes {
		if n == nil {
			continue
		}
		var ports []int
		for i, p := range n.in {
			if !p.Connected() {
				ports = append(ports, i)
			}
		}
		if len(ports) > 0 {
			missing = append(missing, Missing{Block: id, Ports: ports})
		}
	}
	return missing
}

// Arity returns the number of inputs and outputs of block.
func (g *PortGraph) Arity(block int) (inputs, outputs int, ok bool) {
	n, err := g.lookup(block)
	if err != nil {
		return 0, 0, false
	}
	return len(n.in), len(n.out), true
}

// Exists reports whether block is a live block.
func (g *PortGraph) Exists(block int) bool {
	return block >= 0 && block < len(g.nodes) && g.nodes[block] != nil
}

// Size returns the id space, tombstones included.
func (g *PortGraph) Size() int {
	return len(g.nodes)
}

// Blocks returns the live block ids in ascending order.
func (g *PortGraph) Blocks() []int {
	var ids []int
	for id, n := range g.nodes {
		if n != nil {
			ids = append(ids, id)
		}
	}
	return ids
}
