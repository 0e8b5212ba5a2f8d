package pass

import (
	"fmt"
	"strings"

	"kanso/internal/ir"
	"kanso/internal/scope"
)

// DropCache memoizes specializations of a callee continuation by the tuple
// of bound actual arguments, so identical call sites share one clone
// (spec.md 4.7.1, 4.7.2). `drop`/mangle itself is not retrieved in
// original_source (referenced but not included in the set pulled for this
// port); its shape here -- clone the callee's whole Scope, substitute bound
// parameters, keep the rest fresh -- is inferred from its two callers,
// lower2cff.cpp and partial_evaluation.cpp, both of which drop a callee and
// immediately redirect the caller's jump to the result.
type DropCache struct {
	memo map[string]*ir.Continuation
}

// NewDropCache creates an empty specialization cache.
func NewDropCache() *DropCache { return &DropCache{memo: make(map[string]*ir.Continuation)} }

// dropKey builds the memoization key: callee GID followed by each bound
// actual's GID in order, with a placeholder for a kept (unbound) position so
// two different drop masks over the same callee never collide.
func dropKey(callee *ir.Continuation, bound []ir.Def) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", callee.GID())
	for _, d := range bound {
		b.WriteByte('|')
		if d == nil {
			b.WriteByte('_')
		} else {
			fmt.Fprintf(&b, "%s", d.GID())
		}
	}
	return b.String()
}

// Drop clones callee's scope, substituting bound[i] for its i-th parameter
// wherever bound[i] is non-nil, and keeping the rest as fresh parameters on
// the specialized replica in their original relative order. Specializations
// are memoized by (callee, bound) so repeated call sites with the same
// actuals share one clone.
func (c *DropCache) Drop(w *ir.World, callee *ir.Continuation, bound []ir.Def) *ir.Continuation {
	key := dropKey(callee, bound)
	if existing, ok := c.memo[key]; ok {
		return existing
	}
	sc := scope.New(w, callee)
	cl := newCloner(w, sc, callee, bound)
	result := cl.run()
	c.memo[key] = result
	return result
}

// cloner clones every continuation in a Scope, substituting the entry's
// bound parameters and keeping the rest, then rebuilds every jump (and,
// transitively, every primop an jump references) through the substitution.
type cloner struct {
	w     *ir.World
	sc    *scope.Scope
	entry *ir.Continuation
	bound []ir.Def

	contOf map[ir.GID]*ir.Continuation
	sub    map[ir.GID]ir.Def
	memo   map[ir.GID]ir.Def
}

func newCloner(w *ir.World, sc *scope.Scope, entry *ir.Continuation, bound []ir.Def) *cloner {
	return &cloner{
		w: w, sc: sc, entry: entry, bound: bound,
		contOf: make(map[ir.GID]*ir.Continuation),
		sub:    make(map[ir.GID]ir.Def),
		memo:   make(map[ir.GID]ir.Def),
	}
}

func (c *cloner) run() *ir.Continuation {
	// Pass 1: a shell for every continuation in the scope. The entry's
	// parameter list loses every bound position; every other continuation
	// keeps its original arity (it is cloned only because it is part of the
	// specialized scope, not because its own signature changes).
	for _, old := range c.sc.Continuations() {
		if old != c.entry && old.IsExternal() {
			// A shared boundary continuation (a return point, another
			// function's external entry) reached only as a jump target from
			// inside this scope. It is not part of what is being specialized
			// and must keep being the same continuation every other caller
			// still sees -- cloning it here would silently fork a GC root.
			c.contOf[old.GID()] = old
			c.sub[old.GID()] = old
			continue
		}
		var keptTypes []ir.Type
		if old == c.entry {
			for i, p := range old.Params {
				if i >= len(c.bound) || c.bound[i] == nil {
					keptTypes = append(keptTypes, p.Type())
				}
			}
		} else {
			for _, p := range old.Params {
				keptTypes = append(keptTypes, p.Type())
			}
		}
		pi := c.w.Pi(keptTypes...).(*ir.PiType)
		name := old.Name()
		if old == c.entry && name != "" {
			name += ".drop"
		}
		nc := c.w.Continuation(pi, old.Flags&^ir.FlagExternal, name)
		c.contOf[old.GID()] = nc
		c.sub[old.GID()] = nc

		if old == c.entry {
			ki := 0
			for i, p := range old.Params {
				if i < len(c.bound) && c.bound[i] != nil {
					c.sub[p.GID()] = c.bound[i]
				} else {
					c.sub[p.GID()] = nc.Params[ki]
					ki++
				}
			}
		} else {
			for i, p := range old.Params {
				c.sub[p.GID()] = nc.Params[i]
			}
		}
	}

	// Pass 2: wire every clone's jump, rebuilding operands through the
	// substitution map (and recursively through any primop chain in between).
	for _, old := range c.sc.Continuations() {
		if old.IsEmpty() || (old != c.entry && old.IsExternal()) {
			continue
		}
		nc := c.contOf[old.GID()]
		callee := c.mapDef(old.J.Callee)
		args := make([]ir.Def, len(old.J.Args))
		for i, a := range old.J.Args {
			args[i] = c.mapDef(a)
		}
		c.w.SetJump(nc, callee, args)
	}

	return c.contOf[c.entry.GID()]
}

// mapDef resolves old through the substitution map, recursively rebuilding
// any primop chain in between via ir.World.UpdateOps. A Continuation or Def
// outside the cloned scope (an external call target, the branch intrinsic,
// a free variable captured from an enclosing scope) is returned unchanged.
func (c *cloner) mapDef(old ir.Def) ir.Def {
	if old == nil {
		return nil
	}
	if v, ok := c.sub[old.GID()]; ok {
		return v
	}
	if v, ok := c.memo[old.GID()]; ok {
		return v
	}
	if _, ok := old.(*ir.Continuation); ok {
		return old
	}
	if !c.sc.Contains(old) {
		return old
	}
	ops := old.Ops()
	newOps := make([]ir.Def, len(ops))
	changed := false
	for i, o := range ops {
		no := c.mapDef(o)
		newOps[i] = no
		if no != o {
			changed = true
		}
	}
	var result ir.Def
	if changed {
		result = c.w.UpdateOps(old, newOps)
	} else {
		result = old
	}
	c.memo[old.GID()] = result
	return result
}
