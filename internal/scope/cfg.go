package scope

import "kanso/internal/ir"

// CFG is the forward or backward control-flow graph over a Scope's
// continuations, built from their jump edges (section 4.5: "From a Scope's
// continuations and their jump edges the CFA builds a forward CFG and a
// backward CFG").
type CFG struct {
	scope    *Scope
	backward bool

	succs map[ir.GID][]*ir.Continuation
	preds map[ir.GID][]*ir.Continuation
	rpo   []*ir.Continuation
}

// ForwardCFG builds the F_CFG: successors follow jump edges as written.
func ForwardCFG(s *Scope) *CFG { return buildCFG(s, false) }

// BackwardCFG builds the B_CFG: edges reversed, rooted at the scope's exit.
func BackwardCFG(s *Scope) *CFG { return buildCFG(s, true) }

func buildCFG(s *Scope, backward bool) *CFG {
	g := &CFG{
		scope:    s,
		backward: backward,
		succs:    make(map[ir.GID][]*ir.Continuation),
		preds:    make(map[ir.GID][]*ir.Continuation),
	}
	for _, c := range s.conts {
		for _, target := range jumpTargets(s, c) {
			g.succs[c.GID()] = append(g.succs[c.GID()], target)
			g.preds[target.GID()] = append(g.preds[target.GID()], c)
		}
	}
	if s.SyntheticExit() {
		// Virtual edges only: every distinct leaf "flows into" the synthetic
		// sink for dominance purposes, without rewriting any leaf's real jump.
		exit := s.Exit()
		for _, leaf := range s.ExitLeaves() {
			g.succs[leaf.GID()] = append(g.succs[leaf.GID()], exit)
			g.preds[exit.GID()] = append(g.preds[exit.GID()], leaf)
		}
	}
	if backward {
		g.succs, g.preds = g.preds, g.succs
	}
	g.rpo = computeRPO(g, g.root())
	return g
}

// jumpTargets returns every continuation c's jump actually transfers control
// to. A plain tail call's only target is its callee. The branch intrinsic
// (section 6) is the one exception: its real targets are its two
// continuation-valued arguments, not the intrinsic itself -- the intrinsic
// is a dispatch operator, never a basic block with its own body.
func jumpTargets(s *Scope, c *ir.Continuation) []*ir.Continuation {
	if c.IsEmpty() {
		return nil
	}
	add := func(out []*ir.Continuation, d ir.Def) []*ir.Continuation {
		if next, ok := d.(*ir.Continuation); ok && s.Contains(next) {
			return append(out, next)
		}
		return out
	}
	if callee, ok := c.J.Callee.(*ir.Continuation); ok && callee.IsIntrinsic() {
		var out []*ir.Continuation
		for _, a := range c.J.Args {
			out = add(out, a)
		}
		return out
	}
	return add(nil, c.J.Callee)
}

func (g *CFG) root() *ir.Continuation {
	if g.backward {
		return g.scope.Exit()
	}
	return g.scope.Entry()
}

func (g *CFG) Succs(c *ir.Continuation) []*ir.Continuation { return g.succs[c.GID()] }
func (g *CFG) Preds(c *ir.Continuation) []*ir.Continuation { return g.preds[c.GID()] }
func (g *CFG) Root() *ir.Continuation                      { return g.root() }

// RPO returns the continuations of this CFG in reverse post-order, the
// traversal order the dominator fixpoint and placement's early phase both
// rely on (section 4.5, 4.6).
func (g *CFG) RPO() []*ir.Continuation { return g.rpo }

func computeRPO(g *CFG, root *ir.Continuation) []*ir.Continuation {
	if root == nil {
		return nil
	}
	visited := map[ir.GID]bool{}
	var post []*ir.Continuation
	var visit func(c *ir.Continuation)
	visit = func(c *ir.Continuation) {
		if visited[c.GID()] {
			return
		}
		visited[c.GID()] = true
		for _, s := range g.succs[c.GID()] {
			visit(s)
		}
		post = append(post, c)
	}
	visit(root)
	// reverse
	rpo := make([]*ir.Continuation, len(post))
	for i, c := range post {
		rpo[len(post)-1-i] = c
	}
	return rpo
}
