package pass

import (
	"kanso/internal/ir"
	"kanso/internal/scope"
)

// Lower2CFF eliminates higher-order call sites, producing Closed First-Order
// Form. For every non-external, non-basic-block callee still visible in a
// top-level scope that is generic or carries a higher-order (order-≥1)
// parameter, a specialized first-order clone is produced (memoized by bound
// actuals) with those parameters substituted by the caller's actual
// arguments; the caller's jump is rewritten to the clone with the order-≥1
// arguments dropped. Iterates to a fixpoint, re-running merge_lambdas and
// cleanup after each pass since either may expose new opportunities
// (spec.md 4.7.1; near 1:1 grounded on
// original_source/src/anydsl2/transform/lower2cff.cpp's `do { ... } while
// (todo)` loop).
func Lower2CFF(w *ir.World) {
	cache := NewDropCache()
	for {
		todo := false
		scope.ForEach(w, true, func(sc *scope.Scope) {
			if lower2cffPass(w, sc, cache) {
				todo = true
			}
		})
		MergeLambdas(w)
		w.Cleanup()
		if !todo {
			break
		}
	}
}

// lower2cffPass rewrites every jump in sc whose callee still needs lowering
// into a call to a specialized, first-order clone.
func lower2cffPass(w *ir.World, sc *scope.Scope, cache *DropCache) bool {
	todo := false
	for _, c := range append([]*ir.Continuation(nil), sc.Continuations()...) {
		if c.IsEmpty() {
			continue
		}
		callee, ok := c.J.Callee.(*ir.Continuation)
		if !ok || callee.IsExternal() || callee.IsIntrinsic() || callee.IsBasicBlock() {
			continue
		}
		if !needsLowering(callee) {
			continue
		}

		bound := make([]ir.Def, len(callee.Params))
		var kept []ir.Def
		for i, p := range callee.Params {
			if i >= len(c.J.Args) {
				continue
			}
			if ir.Order(p) >= 1 {
				bound[i] = c.J.Args[i]
			} else {
				kept = append(kept, c.J.Args[i])
			}
		}
		clone := cache.Drop(w, callee, bound)
		w.SetJump(c, clone, kept)
		todo = true
	}
	return todo
}

// needsLowering reports whether callee still needs specialization: it is
// generic (its pi type mentions a type variable) or has at least one
// order-≥1 parameter, either of which keeps it from compiling down to a
// plain first-order basic block or function.
func needsLowering(callee *ir.Continuation) bool {
	if ir.IsGeneric(callee.PiType()) {
		return true
	}
	for _, p := range callee.Params {
		if ir.Order(p) >= 1 {
			return true
		}
	}
	return false
}
