package pass

import (
	"kanso/internal/ir"
	"kanso/internal/scope"
)

// PartialEvaluation performs eager specialization: every jump whose callee
// is wrapped in a `run` marker is dropped with its currently-known arguments
// fixed, redirecting the caller to the specialization; an argument wrapped
// in `hlt` is treated as unknown and left as a kept (unspecialized)
// parameter instead of being bound. Specializations are cached by call
// signature (callee + bound args), so a callee that (transitively) calls
// itself under `run` again converges once the cache starts returning the
// clone it already built rather than recursing forever (spec.md 4.7.2;
// near 1:1 grounded on
// original_source/src/thorin/transform/partial_evaluation.cpp). After the
// fixpoint, every surviving Run/Hlt marker is stripped by replacing it with
// its wrapped operand, per the original's final loop over world.primops().
func PartialEvaluation(w *ir.World) {
	cache := NewDropCache()
	for {
		todo := false
		scope.ForEach(w, true, func(sc *scope.Scope) {
			if partialEvalPass(w, sc, cache) {
				todo = true
			}
		})
		w.Cleanup()
		if !todo {
			break
		}
	}
	stripEvalMarkers(w)
	w.Cleanup()
}

func partialEvalPass(w *ir.World, sc *scope.Scope, cache *DropCache) bool {
	todo := false
	for _, c := range append([]*ir.Continuation(nil), sc.Continuations()...) {
		if c.IsEmpty() {
			continue
		}
		run, ok := c.J.Callee.(*ir.Run)
		if !ok {
			continue
		}
		callee, ok := run.Def_().(*ir.Continuation)
		if !ok || callee.IsEmpty() || callee.IsIntrinsic() {
			continue
		}

		bound := make([]ir.Def, len(callee.Params))
		for i := range callee.Params {
			if i >= len(c.J.Args) {
				continue
			}
			arg := c.J.Args[i]
			if _, isHlt := arg.(*ir.Hlt); isHlt {
				continue // hlt: treat as unknown, stays a kept argument
			}
			bound[i] = arg
		}

		clone := cache.Drop(w, callee, bound)
		var kept []ir.Def
		for i, a := range c.J.Args {
			if bound[i] == nil {
				kept = append(kept, a)
			}
		}
		w.SetJump(c, clone, kept)
		todo = true
	}
	return todo
}

func stripEvalMarkers(w *ir.World) {
	for _, d := range w.Defs() {
		switch m := d.(type) {
		case *ir.Run:
			w.Replace(m, m.Def_())
		case *ir.Hlt:
			w.Replace(m, m.Def_())
		}
	}
}
