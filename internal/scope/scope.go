// Package scope computes the closure of Defs live from an entry
// continuation's point of view: the set of continuations and primops
// transitively reachable through operand edges, without descending into
// other external continuations, plus the free variables that escape it.
//
// Grounded on the teacher's internal/semantic control/data-flow walks for Go
// idiom (post-order worklists over a graph keyed by an identity set) and on
// original_source/src/thorin/analyses/scope.h for the CPS-specific semantics
// (post_order_walk, free(), free_params(), for_each).
package scope

import (
	"kanso/internal/ir"
)

// Scope is the closure of Defs reachable from entry through operand edges.
// The walk does not descend into an external continuation other than entry
// (that continuation is still a member); data Defs are included whether or
// not they depend on entry's parameters.
type Scope struct {
	world *ir.World
	entry *ir.Continuation
	exit  *ir.Continuation

	defs  map[ir.GID]ir.Def
	conts []*ir.Continuation // entry first, the rest in no particular order

	free       map[ir.GID]ir.Def
	freeParams map[ir.GID]*ir.Param

	syntheticExit bool
	exitLeaves    []*ir.Continuation // only set when syntheticExit: the real leaves the synthetic sink stands in for
}

// New computes the Scope rooted at entry.
func New(w *ir.World, entry *ir.Continuation) *Scope {
	s := &Scope{world: w, entry: entry, defs: make(map[ir.GID]ir.Def)}
	s.run()
	return s
}

func (s *Scope) World() *ir.World           { return s.world }
func (s *Scope) Entry() *ir.Continuation    { return s.entry }
func (s *Scope) Exit() *ir.Continuation     { return s.exit }
func (s *Scope) Defs() map[ir.GID]ir.Def    { return s.defs }
func (s *Scope) Contains(d ir.Def) bool     { _, ok := s.defs[d.GID()]; return ok }

// Continuations returns every continuation in the scope, entry first,
// otherwise undiscovered order (section 4.4: "entry() will be first ...
// all other Lams are in no particular order").
func (s *Scope) Continuations() []*ir.Continuation { return s.conts }

// run performs the post-order worklist walk from the teacher's scope.h:
// a queue of continuations to visit, and for each a stack-based post-order
// walk of its operand graph that stops whenever it meets a continuation
// (queued for the outer loop instead of being recursed into immediately).
func (s *Scope) run() {
	contQueue := []*ir.Continuation{s.entry}
	queued := map[ir.GID]bool{s.entry.GID(): true}
	s.defs[s.entry.GID()] = s.entry

	for len(contQueue) > 0 {
		cur := contQueue[0]
		contQueue = contQueue[1:]

		var stack []ir.Def
		onStack := make(map[ir.GID]bool)
		stack = append(stack, cur)
		onStack[cur.GID()] = true

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			pushedChild := false
			for _, op := range top.Ops() {
				if op == nil {
					continue
				}
				if next, ok := op.(*ir.Continuation); ok {
					// Always a member (a reachable jump target), but only
					// expanded into its own body when it still transitively
					// depends on entry -- see dependsOnEntry.
					s.defs[next.GID()] = next
					if s.dependsOnEntry(next) && !queued[next.GID()] {
						queued[next.GID()] = true
						contQueue = append(contQueue, next)
					}
					continue
				}
				if !s.dependsOnEntry(op) {
					continue
				}
				if onStack[op.GID()] {
					continue
				}
				if _, already := s.defs[op.GID()]; already {
					continue
				}
				stack = append(stack, op)
				onStack[op.GID()] = true
				pushedChild = true
			}
			if !pushedChild {
				s.defs[top.GID()] = top
				stack = stack[:len(stack)-1]
				delete(onStack, top.GID())
			}
		}
	}

	s.conts = append(s.conts, s.entry)
	for gid := range s.defs {
		if c, ok := s.world.Defs()[gid].(*ir.Continuation); ok && c != s.entry {
			s.conts = append(s.conts, c)
		}
	}
	s.exit = s.findOrBuildExit()
}

// dependsOnEntry reports whether d, reached as an operand of something
// already pulled into the scope, should itself be expanded -- the section
// 4.4 "stopping at Defs that do not (transitively) depend on the entry's
// parameters" clause. Plain data Defs (primops, literals, types) reached
// this way are always part of the same dataflow subgraph as whatever
// referenced them, so they always qualify: a literal or arithmetic op
// doesn't carry its own notion of which function it "belongs to".
//
// A Continuation is different: every other Continuation already marked
// external is, by the one-Scope-per-external-root discipline ForEach drives
// (a top-level Scope per external entry), a distinct function with its own
// parameter list foreign to entry's. Nothing reachable only by jumping into
// it can be said to transitively depend on entry's parameters, so the walk
// stops there -- the external continuation is still recorded as a scope
// member (callers need to see it as a valid jump target or exit), it is
// just never expanded into its own jump graph. entry itself always
// qualifies, including the degenerate case of a continuation that jumps
// back to itself.
func (s *Scope) dependsOnEntry(d ir.Def) bool {
	if c, ok := d.(*ir.Continuation); ok {
		return c == s.entry || !c.IsExternal()
	}
	return true
}

// findOrBuildExit returns the scope's unique return point (section 4.4: "It
// additionally records an exit continuation: a unique synthetic sink if
// multiple returns exist"). A leaf is any scope member whose jump (if any)
// targets nothing still inside the scope -- the CFG-sink definition, which
// uniformly covers both "jumps to the distinguished return parameter" and
// "tail-calls an external function" shaped exits without needing to special-
// case either. Exactly one leaf is the common case and is returned directly;
// zero leaves (every member jumps back inside the scope, or has no jump set
// yet) falls back to entry itself, same as an empty scope. More than one
// leaf is the genuine multiple-exit case spec.md calls out: a fresh
// synthetic continuation is built and recorded as the virtual CFG sink every
// leaf is treated as flowing into (see cfg.go's buildCFG), without rewriting
// any real jump -- the leaves themselves are untouched, this is analysis
// state, not a graph mutation.
func (s *Scope) findOrBuildExit() *ir.Continuation {
	var leaves []*ir.Continuation
	for _, c := range s.conts {
		if c.IsEmpty() {
			continue
		}
		if len(jumpTargets(s, c)) == 0 {
			leaves = append(leaves, c)
		}
	}
	switch len(leaves) {
	case 0:
		return s.entry
	case 1:
		return leaves[0]
	default:
		s.world.Diag.Tracef("scope %s: %d distinct exits, building a synthetic sink", s.entry.Name(), len(leaves))
		sink := s.world.Continuation(s.world.Pi().(*ir.PiType), ir.FlagNone, s.entry.Name()+".exit")
		s.syntheticExit = true
		s.exitLeaves = leaves
		return sink
	}
}

// SyntheticExit reports whether Exit() is a synthetic sink built over
// several distinct real leaves rather than a real scope member.
func (s *Scope) SyntheticExit() bool { return s.syntheticExit }

// ExitLeaves returns the real leaves a synthetic Exit() stands in for, or
// nil when Exit() is a real scope member.
func (s *Scope) ExitLeaves() []*ir.Continuation { return s.exitLeaves }

// Free returns every Def referenced by a scope member but not itself
// contained in the scope -- the scope's free variables (section 4.4).
func (s *Scope) Free() map[ir.GID]ir.Def {
	if s.free != nil {
		return s.free
	}
	s.free = make(map[ir.GID]ir.Def)
	for _, d := range s.defs {
		for _, op := range d.Ops() {
			if op == nil {
				continue
			}
			if _, inside := s.defs[op.GID()]; !inside {
				s.free[op.GID()] = op
			}
		}
	}
	return s.free
}

// FreeParams returns the subset of Free() that are Params -- free variables
// that specifically escape from an enclosing continuation (section 4.4).
func (s *Scope) FreeParams() map[ir.GID]*ir.Param {
	if s.freeParams != nil {
		return s.freeParams
	}
	s.freeParams = make(map[ir.GID]*ir.Param)
	for gid, d := range s.Free() {
		if p, ok := d.(*ir.Param); ok {
			s.freeParams[gid] = p
		}
	}
	return s.freeParams
}

// HasFreeParams reports whether this scope has free params, i.e. is not
// top-level (section 4.4: a top-level scope has no free params and drives
// whole-program iteration).
func (s *Scope) HasFreeParams() bool { return len(s.FreeParams()) > 0 }

// ForEach visits every top-level scope reachable in w: one Scope per
// external continuation whose closure has no free parameters. elideEmpty
// skips continuations with no jump body yet, matching the teacher's
// `elide_empty` template default (section 4.4, scope.h Scope::for_each).
func ForEach(w *ir.World, elideEmpty bool, visit func(*Scope)) {
	for _, ext := range w.Externals() {
		if elideEmpty && ext.IsEmpty() {
			continue
		}
		sc := New(w, ext)
		if !sc.HasFreeParams() {
			visit(sc)
		}
	}
}
