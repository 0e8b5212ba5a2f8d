package pass

import (
	"sort"

	"kanso/internal/ir"
)

// CopyProp drops a continuation parameter whenever every caller passes it
// the exact same argument, substituting that argument for every use of the
// parameter and shrinking the continuation's arity (section 9's Open
// Question: the base spec calls out copy propagation as useful but does
// not give an algorithm; this is the classical join-lattice formulation --
// bottom/unique-value/top per parameter, folded over a continuation's
// caller set -- the natural generalization of thorin's own
// merge_lambdas/mem2reg family of "propagate a single known value through a
// CFG edge" passes). A caller that jumps to itself (a parameter passed back
// to its own continuation unchanged, as in a loop induction variable that
// happens to be invariant) is not itself informative and does not force the
// join to top; it only widens to top when two callers disagree.
func CopyProp(w *ir.World) bool {
	changed := false
	for {
		progress := false
		for _, c := range sortedContinuations(w) {
			if c.IsEmpty() || c.IsIntrinsic() || c.IsExternal() {
				continue
			}
			callers := callersOf(w, c)
			if len(callers) == 0 {
				continue
			}
			for i := 0; i < len(c.Params); i++ {
				p := c.Params[i]
				v := uniqueArg(c, p, i, callers)
				if v == nil {
					continue
				}
				dropParam(w, c, i, v)
				progress, changed = true, true
				break // arity just changed under us; restart this continuation's param scan
			}
		}
		if !progress {
			break
		}
	}
	return changed
}

// copyPropUse pairs a jumping continuation with the argument list it passes,
// so callersOf can report self-jumps (where the "caller" and callee are the
// same continuation) without losing that information.
type copyPropUse struct {
	from *ir.Continuation
	args []ir.Def
}

func callersOf(w *ir.World, callee *ir.Continuation) []copyPropUse {
	var out []copyPropUse
	for _, u := range w.Uses(callee) {
		from, ok := u.User.(*ir.Continuation)
		if !ok || from.IsEmpty() || from.J.Callee.GID() != callee.GID() {
			continue
		}
		out = append(out, copyPropUse{from: from, args: from.J.Args})
	}
	return out
}

// uniqueArg reports the single value every caller passes for parameter p at
// position i, or nil if callers disagree (top) or none supply an argument
// there. A caller's own reference to p passed back to itself unchanged
// carries no information and is skipped rather than forcing disagreement.
func uniqueArg(c *ir.Continuation, p *ir.Param, i int, callers []copyPropUse) ir.Def {
	var unique ir.Def
	for _, use := range callers {
		if i >= len(use.args) {
			return nil
		}
		a := use.args[i]
		if a.GID() == p.GID() {
			continue // self-referential, uninformative
		}
		if unique == nil {
			unique = a
			continue
		}
		if unique.GID() != a.GID() {
			return nil // two distinct values reach this parameter: top
		}
	}
	return unique
}

// dropParam removes c's i-th parameter, substituting v for every existing
// use of it, then patches every caller's jump to omit the corresponding
// argument.
func dropParam(w *ir.World, c *ir.Continuation, i int, v ir.Def) {
	p := c.Params[i]
	w.Replace(p, v)

	newParams := make([]*ir.Param, 0, len(c.Params)-1)
	var types []ir.Type
	for j, q := range c.Params {
		if j == i {
			continue
		}
		newParams = append(newParams, q)
		types = append(types, q.Type())
	}
	for idx, q := range newParams {
		q.Index = idx
	}
	pi := w.Pi(types...).(*ir.PiType)
	w.SetParams(c, newParams, pi)

	patched := map[ir.GID]bool{}
	for _, u := range w.Uses(c) {
		from, ok := u.User.(*ir.Continuation)
		if !ok || from.IsEmpty() || from.J.Callee.GID() != c.GID() {
			continue
		}
		if patched[from.GID()] {
			continue // from shows up more than once in this Uses snapshot; already patched
		}
		patched[from.GID()] = true
		if i >= len(from.J.Args) {
			continue
		}
		newArgs := make([]ir.Def, 0, len(from.J.Args)-1)
		newArgs = append(newArgs, from.J.Args[:i]...)
		newArgs = append(newArgs, from.J.Args[i+1:]...)
		w.SetJump(from, from.J.Callee, newArgs)
	}
}

func sortedContinuations(w *ir.World) []*ir.Continuation {
	var out []*ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GID() < out[j].GID() })
	return out
}
