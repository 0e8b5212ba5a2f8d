// Package schedule implements placement: assigning every pure primop to
// exactly one continuation so that each continuation's body becomes an
// ordered instruction list (spec.md section 4.6).
//
// Near 1:1 grounded on
// original_source/src/anydsl2/analyses/placement.cpp: visit_early's
// reference-counted breadth-first topological walk, Placement.place_late's
// bottom-up LCA accumulation, and Placement.place_early's dominator-chain
// loop-depth minimization.
package schedule

import (
	"math"

	"kanso/internal/ir"
	"kanso/internal/scope"
)

// needsPlacement reports whether d is a primop that must be assigned a home
// continuation. Continuations, Params, and constants (Literal/Bottom/Any)
// are never scheduled as instructions.
func needsPlacement(d ir.Def) bool {
	switch d.Kind() {
	case ir.KindContinuation, ir.KindParam, ir.KindLiteral, ir.KindBottom, ir.KindAny:
		return false
	default:
		return !d.Kind().IsType()
	}
}

// isConst mirrors anydsl2's Def::is_const(): true only for the compile-time
// constant kinds. Used solely to size visitEarly's dependency counters --
// unlike needsPlacement, Params and Continuations DO count as dependencies
// there (they still must appear in topo_order before their user is ready).
func isConst(d ir.Def) bool {
	switch d.Kind() {
	case ir.KindLiteral, ir.KindBottom, ir.KindAny:
		return true
	default:
		return false
	}
}

// Places maps a continuation's generation id to the ordered primops placed
// in its body.
type Places map[ir.GID][]ir.Def

// Place runs full placement over sc and returns the per-continuation
// instruction lists (spec.md section 4.6).
func Place(w *ir.World, sc *scope.Scope) Places {
	cfg := scope.ForwardCFG(sc)
	dom := scope.Dominators(cfg)
	loops := scope.Loops(cfg)
	rpo := cfg.RPO()

	p := &placement{world: w, dom: dom, loops: loops, rpo: rpo}
	p.topo = visitEarly(w, rpo)
	p.pass = w.NewPass()
	p.lateOf = make(map[ir.GID]*ir.Continuation)
	p.counter = make(map[ir.GID]int)

	p.placeLateAll()
	return p.placeEarly()
}

// visitEarly produces the topological order place_early scans: each
// continuation (RPO order) followed by its params, then every primop once
// all of its non-constant operands have themselves been emitted into the
// order. The counter arithmetic (initialize to non-const-op-count, pre-
// decremented by one for the edge currently being walked) is transliterated
// directly from visit_early in placement.cpp.
func visitEarly(w *ir.World, rpo []*ir.Continuation) []ir.Def {
	var result []ir.Def
	pass := w.NewPass()
	remaining := make(map[ir.GID]int)
	var queue []ir.Def

	for _, c := range rpo {
		queue = append(queue, c)
		for _, param := range c.Params {
			queue = append(queue, param)
		}
		for len(queue) > 0 {
			def := queue[0]
			queue = queue[1:]
			result = append(result, def)

			for _, u := range w.Uses(def) {
				use := u.User
				if _, ok := use.(*ir.Continuation); ok {
					continue
				}
				if w.Visit(use, pass) {
					remaining[use.GID()]--
				} else {
					cnt := -1
					for _, op := range use.Ops() {
						if op != nil && !isConst(op) {
							cnt++
						}
					}
					remaining[use.GID()] = cnt
				}
				if remaining[use.GID()] == 0 {
					queue = append(queue, use)
				}
			}
		}
	}
	return result
}

type placement struct {
	world *ir.World
	dom   *scope.DomTree
	loops *scope.LoopTree
	rpo   []*ir.Continuation
	topo  []ir.Def
	pass  uint64

	lateOf  map[ir.GID]*ir.Continuation
	counter map[ir.GID]int
}

// placeLateAll visits continuations in reverse RPO, seeding place_late's
// bottom-up sweep from each one's own operand edges (place_late(scope[i],
// scope[i]) in the original).
func (p *placement) placeLateAll() {
	for i := len(p.rpo) - 1; i >= 0; i-- {
		c := p.rpo[i]
		p.placeLate(c, c)
	}
}

// placeLate accumulates, for every primop operand of def, the LCA on the
// dominator tree of every continuation that (transitively) uses it --
// primop's "latest legal" home. Once a primop's use-count has been fully
// accounted for (counter reaches zero), its own operands are walked in
// turn, propagating the sweep upward through the dependency graph.
func (p *placement) placeLate(from *ir.Continuation, def ir.Def) {
	for _, op := range def.Ops() {
		if op == nil || !needsPlacement(op) {
			continue
		}
		if !p.world.Visit(op, p.pass) {
			p.counter[op.GID()] = len(p.world.Uses(op))
		}
		if cur, ok := p.lateOf[op.GID()]; ok {
			p.lateOf[op.GID()] = p.dom.LCA(from, cur)
		} else {
			p.lateOf[op.GID()] = from
		}
		p.counter[op.GID()]--
		if p.counter[op.GID()] == 0 {
			p.placeLate(p.lateOf[op.GID()], op)
		}
	}
}

// placeEarly walks topo_order, tracking `early` as the continuation most
// recently seen, and for every live primop chooses its final home: Slot and
// Enter pin to early, Leave stays at its late point, everything else walks
// the dominator chain from the late point toward early picking the
// continuation with minimum loop depth (spec.md section 4.6).
func (p *placement) placeEarly() Places {
	places := make(Places)
	var early *ir.Continuation

	for _, def := range p.topo {
		switch d := def.(type) {
		case *ir.Continuation:
			early = d
			if _, ok := places[d.GID()]; !ok {
				places[d.GID()] = nil
			}
		case *ir.Param:
			continue
		default:
			if !needsPlacement(d) || !p.world.Marked(d, p.pass) {
				continue // not a primop, or dead (never reached by place_late)
			}
			best, ok := p.lateOf[d.GID()]
			if !ok || best == nil {
				continue
			}
			switch d.Kind() {
			case ir.KindSlot, ir.KindEnter:
				best = early
			case ir.KindLeave:
				// stays at its late point
			default:
				depth := math.MaxInt
				for cur := best; cur != nil && early != nil && cur.GID() != early.GID(); cur = p.dom.IDom(cur) {
					if cd := p.loops.LoopDepth(cur); cd < depth {
						best, depth = cur, cd
					}
				}
			}
			places[best.GID()] = append(places[best.GID()], d)
		}
	}
	return places
}
