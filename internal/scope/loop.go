package scope

import "kanso/internal/ir"

// LoopTree computes loop nesting by Tarjan's SCC over a forward CFG: each
// SCC containing a back-edge (more than one node, or a single node with a
// self-loop) becomes a loop; nesting depth is the number of enclosing loops
// (section 4.5).
type LoopTree struct {
	cfg       *CFG
	sccOf     map[ir.GID]int
	sccNodes  [][]*ir.Continuation
	isLoop    []bool
	loopDepth map[ir.GID]int
}

// Loops runs Tarjan's algorithm over g and computes loop_depth for every
// continuation in the scope.
func Loops(g *CFG) *LoopTree {
	t := &LoopTree{
		cfg:   g,
		sccOf: make(map[ir.GID]int),
	}
	tj := &tarjan{
		succs: g.succs,
		index: make(map[ir.GID]int),
		low:   make(map[ir.GID]int),
		onStk: make(map[ir.GID]bool),
	}
	for _, c := range g.scope.Continuations() {
		if _, seen := tj.index[c.GID()]; !seen {
			tj.strongConnect(c, t)
		}
	}
	t.computeNesting()
	return t
}

type tarjan struct {
	succs   map[ir.GID][]*ir.Continuation
	index   map[ir.GID]int
	low     map[ir.GID]int
	onStk   map[ir.GID]bool
	stack   []*ir.Continuation
	counter int
}

func (tj *tarjan) strongConnect(v *ir.Continuation, t *LoopTree) {
	tj.index[v.GID()] = tj.counter
	tj.low[v.GID()] = tj.counter
	tj.counter++
	tj.stack = append(tj.stack, v)
	tj.onStk[v.GID()] = true

	for _, w := range tj.succs[v.GID()] {
		if _, seen := tj.index[w.GID()]; !seen {
			tj.strongConnect(w, t)
			if tj.low[w.GID()] < tj.low[v.GID()] {
				tj.low[v.GID()] = tj.low[w.GID()]
			}
		} else if tj.onStk[w.GID()] {
			if tj.index[w.GID()] < tj.low[v.GID()] {
				tj.low[v.GID()] = tj.index[w.GID()]
			}
		}
	}

	if tj.low[v.GID()] == tj.index[v.GID()] {
		var component []*ir.Continuation
		for {
			n := len(tj.stack) - 1
			w := tj.stack[n]
			tj.stack = tj.stack[:n]
			tj.onStk[w.GID()] = false
			component = append(component, w)
			if w.GID() == v.GID() {
				break
			}
		}
		id := len(t.sccNodes)
		selfLoop := len(component) == 1 && hasSelfEdge(tj.succs, component[0])
		t.sccNodes = append(t.sccNodes, component)
		t.isLoop = append(t.isLoop, len(component) > 1 || selfLoop)
		for _, c := range component {
			t.sccOf[c.GID()] = id
		}
	}
}

func hasSelfEdge(succs map[ir.GID][]*ir.Continuation, c *ir.Continuation) bool {
	for _, s := range succs[c.GID()] {
		if s.GID() == c.GID() {
			return true
		}
	}
	return false
}

// computeNesting builds the SCC condensation DAG (acyclic by construction)
// and, for every node, counts how many loop SCCs lie on some path from the
// root to it -- including its own SCC if that SCC is itself a loop. This is
// a forward sweep over condensation *predecessors*, memoized, since the
// condensation DAG is well-founded in the direction of control flow.
func (t *LoopTree) computeNesting() {
	t.loopDepth = make(map[ir.GID]int)
	nSCC := len(t.sccNodes)
	condPreds := make([][]int, nSCC)
	for from, nodes := range t.sccNodes {
		seen := map[int]bool{}
		for _, c := range nodes {
			for _, s := range t.cfg.succs[c.GID()] {
				to := t.sccOf[s.GID()]
				if to != from && !seen[to] {
					seen[to] = true
					condPreds[to] = append(condPreds[to], from)
				}
			}
		}
	}
	memo := make(map[int]int)
	inProgress := make(map[int]bool)
	var depthOf func(id int) int
	depthOf = func(id int) int {
		if d, ok := memo[id]; ok {
			return d
		}
		if inProgress[id] {
			return 0 // condensation is acyclic; only a self-reference can hit this
		}
		inProgress[id] = true
		best := 0
		for _, from := range condPreds[id] {
			if d := depthOf(from); d > best {
				best = d
			}
		}
		d := best
		if t.isLoop[id] {
			d++
		}
		memo[id] = d
		inProgress[id] = false
		return d
	}
	for id, nodes := range t.sccNodes {
		d := depthOf(id)
		for _, c := range nodes {
			t.loopDepth[c.GID()] = d
		}
	}
}

// LoopDepth returns the number of loops enclosing c (section 4.5:
// `loop_depth(l)`).
func (t *LoopTree) LoopDepth(c *ir.Continuation) int { return t.loopDepth[c.GID()] }

// IsLoopHeader reports whether c's SCC is itself a loop.
func (t *LoopTree) IsLoopHeader(c *ir.Continuation) bool { return t.isLoop[t.sccOf[c.GID()]] }
