package pass

import "kanso/internal/ir"

// MergeLambdas coalesces a continuation with its unique successor whenever
// that successor has exactly one caller and is reached by a plain,
// unconditional jump, eliminating the trampoline (spec.md 4.7.1;
// anydsl2/transform/lower2cff.cpp calls this after every lower2cff fixpoint
// iteration, in a `do { ... merge_lambdas(world); world.cleanup(); } while
// (todo)` loop). Returns whether anything changed, so callers can keep
// iterating their own fixpoint loop.
func MergeLambdas(w *ir.World) bool {
	changed := false
	for {
		merged := false
		for _, d := range w.Defs() {
			c, ok := d.(*ir.Continuation)
			if !ok || c.IsEmpty() || c.IsIntrinsic() {
				continue
			}
			succ, ok := c.J.Callee.(*ir.Continuation)
			if !ok || succ.IsIntrinsic() || succ.IsExternal() || succ.IsEmpty() {
				continue
			}
			if len(succ.Params) != len(c.J.Args) {
				continue // arity mismatch: not a plain tail call (guards out branch targets)
			}
			if len(w.Uses(succ)) != 1 {
				continue // succ has other callers; inlining it away would lose their jumps
			}

			sub := make(map[ir.GID]ir.Def, len(succ.Params))
			for i, p := range succ.Params {
				sub[p.GID()] = c.J.Args[i]
			}
			newCallee := substitute(w, sub, succ.J.Callee)
			newArgs := make([]ir.Def, len(succ.J.Args))
			for i, a := range succ.J.Args {
				newArgs[i] = substitute(w, sub, a)
			}
			w.SetJump(c, newCallee, newArgs)
			merged, changed = true, true
		}
		if !merged {
			break
		}
	}
	return changed
}
