package pass

import "kanso/internal/ir"

// substitute rebuilds d with every occurrence of a key in sub replaced by
// its mapped value, walking d's operand chain and rebuilding through
// ir.World.UpdateOps wherever an operand actually changed. Continuations and
// Params are opaque to this walk -- a Continuation is rewired by its own
// SetJump call, never by rebuilding it as if it had ordinary operands, and a
// Param absent from sub names a variable genuinely free at this point, not
// something to recurse into.
//
// Used by merge_lambdas (substituting a trampoline's params with the
// caller's arguments) and by mem2reg's phixy materialization. Unlike
// ir.World.Replace, it never touches the World's use-lists of the original
// d: d's old copy may still be reachable from elsewhere in the graph.
func substitute(w *ir.World, sub map[ir.GID]ir.Def, d ir.Def) ir.Def {
	if d == nil {
		return nil
	}
	if v, ok := sub[d.GID()]; ok {
		return v
	}
	switch d.(type) {
	case *ir.Continuation, *ir.Param:
		return d
	}
	ops := d.Ops()
	if len(ops) == 0 {
		return d
	}
	newOps := make([]ir.Def, len(ops))
	changed := false
	for i, o := range ops {
		no := substitute(w, sub, o)
		newOps[i] = no
		if no != o {
			changed = true
		}
	}
	if !changed {
		return d
	}
	return w.UpdateOps(d, newOps)
}
