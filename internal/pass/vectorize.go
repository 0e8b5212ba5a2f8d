package pass

import (
	"fmt"

	"kanso/internal/ir"
	"kanso/internal/scope"
)

// Vectorize builds a width-wide SIMD replica of the scope rooted at entry,
// widening every primitive-typed value to a width-element Sigma and
// if-converting the single most common divergence shape -- a branch whose
// two arms are each a single-predecessor, single-successor block rejoining
// at a common continuation -- into a straight-line sequence ending in a
// lane-wise Select per merged argument (spec.md 4.7.4). There is no
// dedicated vector Kind in this IR (section 3's type lattice is scalar
// throughout); a width-wide value is represented the same way the rest of
// the language already represents an aggregate of known, fixed size --an
// unnamed Sigma of width copies of the scalar element type, built and
// projected with the existing Tuple/Extract primops -- rather than growing
// the type system for this one pass.
//
// A branch that does not match the simple-diamond shape (nested divergence,
// an arm with its own side exit, irreducible merges) is left scalar: lane
// 0's condition value decides control flow for every lane from that point
// on, and nothing past the unsupported branch is widened. No execution mask
// is computed for any block: the two-arm diamond is the only divergence that
// is if-converted, and past any other branch the lanes whose condition
// differs from lane 0's follow lane 0's arm.
func Vectorize(w *ir.World, entry *ir.Continuation, width int) *ir.Continuation {
	if width < 1 {
		panic(fmt.Sprintf("pass: Vectorize: width must be >= 1, got %d", width))
	}
	sc := scope.New(w, entry)
	vr := &vectorizer{
		w: w, sc: sc, cfg: scope.ForwardCFG(sc), width: width,
		contOf:     make(map[ir.GID]*ir.Continuation),
		paramLanes: make(map[ir.GID][]ir.Def),
		memo:       make(map[ir.GID][]ir.Def),
	}
	result := vr.vectorize(entry)
	// shell() strips FlagExternal unconditionally so that inner blocks never
	// become spurious GC roots, but the entry replica must keep it when the
	// original entry had it (spec.md 8's width-4 scenario: "external
	// attribute preserved") -- otherwise the very next Cleanup sweeps the
	// whole vectorized function away as unreachable.
	if entry.IsExternal() {
		w.MarkExternal(result)
	}
	return result
}

type vectorizer struct {
	w     *ir.World
	sc    *scope.Scope
	cfg   *scope.CFG
	width int

	contOf     map[ir.GID]*ir.Continuation
	paramLanes map[ir.GID][]ir.Def
	memo       map[ir.GID][]ir.Def
}

func (vr *vectorizer) vectorizable(t ir.Type) bool {
	_, ok := t.(*ir.PrimType)
	return ok
}

func broadcast(d ir.Def, width int) []ir.Def {
	out := make([]ir.Def, width)
	for i := range out {
		out[i] = d
	}
	return out
}

// shell creates c's vectorized replica: every primitive-typed parameter
// widens to a Sigma of width lanes (immediately unpacked via Extract so the
// rest of the pass can work lane-by-lane); every other parameter (a pointer,
// a continuation, an aggregate) keeps its scalar type and is shared
// unchanged across all lanes.
func (vr *vectorizer) shell(c *ir.Continuation) *ir.Continuation {
	types := make([]ir.Type, len(c.Params))
	for i, p := range c.Params {
		if vr.vectorizable(p.Type()) {
			elems := make([]ir.Type, vr.width)
			for l := range elems {
				elems[l] = p.Type()
			}
			types[i] = vr.w.Sigma(elems...)
		} else {
			types[i] = p.Type()
		}
	}
	pi := vr.w.Pi(types...).(*ir.PiType)
	nc := vr.w.Continuation(pi, c.Flags&^ir.FlagExternal, vectorName(c, vr.width))
	for i, p := range c.Params {
		lanes := make([]ir.Def, vr.width)
		if vr.vectorizable(p.Type()) {
			for l := 0; l < vr.width; l++ {
				lanes[l] = vr.w.Extract(nc.Params[i], l)
			}
		} else {
			for l := range lanes {
				lanes[l] = ir.Def(nc.Params[i])
			}
		}
		vr.paramLanes[p.GID()] = lanes
	}
	return nc
}

func vectorName(c *ir.Continuation, width int) string {
	if c.Name() == "" {
		return ""
	}
	return fmt.Sprintf("%s.x%d", c.Name(), width)
}

// lanes resolves d to width per-lane values: a vectorizable param's already-
// extracted lanes, a broadcast of any def this pass does not widen
// (literals, pointers, continuations, memory/eval-marker ops, tuples and
// their extracts/inserts), or an elementwise rebuild of a scalar
// arithmetic/relational/conversion/select op over its own vectorized
// operands.
func (vr *vectorizer) lanes(d ir.Def) []ir.Def {
	if v, ok := vr.memo[d.GID()]; ok {
		return v
	}
	var out []ir.Def
	switch v := d.(type) {
	case *ir.Param:
		if existing, ok := vr.paramLanes[v.GID()]; ok {
			out = existing
		} else {
			out = broadcast(d, vr.width) // a free variable from an enclosing scope
		}
	case *ir.Continuation, *ir.Literal, *ir.Bottom, *ir.AnyVal:
		out = broadcast(d, vr.width)
	case *ir.ArithOp:
		lhs, rhs := vr.lanes(v.Lhs()), vr.lanes(v.Rhs())
		out = make([]ir.Def, vr.width)
		for l := range out {
			out[l] = vr.w.ArithOp(v.OpKind, lhs[l], rhs[l])
		}
	case *ir.RelOp:
		lhs, rhs := vr.lanes(v.Lhs()), vr.lanes(v.Rhs())
		out = make([]ir.Def, vr.width)
		for l := range out {
			out[l] = vr.w.RelOp(v.OpKind, lhs[l], rhs[l])
		}
	case *ir.ConvOp:
		from := vr.lanes(v.From())
		out = make([]ir.Def, vr.width)
		for l := range out {
			out[l] = vr.w.ConvOp(v.OpKind, from[l], v.Type())
		}
	case *ir.Select:
		cond, tv, fv := vr.lanes(v.Cond()), vr.lanes(v.TVal()), vr.lanes(v.FVal())
		out = make([]ir.Def, vr.width)
		for l := range out {
			out[l] = vr.w.Select(cond[l], tv[l], fv[l])
		}
	default:
		// Slot, Load, Store, Enter, Leave, Run, Hlt, tuples of non-primitive
		// data: explicitly scalar for this pass. A memory op has no numeric
		// lanes to widen, and an eval marker's whole purpose is to gate a
		// specialization decision, not to carry per-lane data.
		out = broadcast(d, vr.width)
	}
	vr.memo[d.GID()] = out
	return out
}

func (vr *vectorizer) pack(lanes []ir.Def) ir.Def {
	allSame := true
	for _, l := range lanes {
		if l != lanes[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return lanes[0] // a broadcast value: don't wrap it in a width-wide tuple
	}
	return vr.w.Tuple(lanes...)
}

// isSimpleArm reports whether blk is eligible for if-conversion: it is
// reached from exactly one predecessor, it is not itself a branch, and it
// ends in a plain tail call.
func (vr *vectorizer) isSimpleArm(pred, blk *ir.Continuation) (join *ir.Continuation, ok bool) {
	if blk.IsExternal() || blk.IsIntrinsic() || blk.IsEmpty() {
		return nil, false
	}
	preds := vr.cfg.Preds(blk)
	if len(preds) != 1 || preds[0].GID() != pred.GID() {
		return nil, false
	}
	j, ok := blk.J.Callee.(*ir.Continuation)
	if !ok || j.IsIntrinsic() {
		return nil, false
	}
	return j, true
}

func (vr *vectorizer) vectorize(c *ir.Continuation) *ir.Continuation {
	if nc, ok := vr.contOf[c.GID()]; ok {
		return nc
	}
	if c.IsEmpty() || !vr.sc.Contains(c) {
		vr.contOf[c.GID()] = c
		return c
	}

	nc := vr.shell(c)
	vr.contOf[c.GID()] = nc // register before recursing so a self/back-edge jump resolves

	if callee, ok := c.J.Callee.(*ir.Continuation); ok && callee.GID() == vr.w.Branch().GID() {
		cond := vr.lanes(c.J.Args[0])
		tBlk := c.J.Args[1].(*ir.Continuation)
		fBlk := c.J.Args[2].(*ir.Continuation)

		tJoin, tOK := vr.isSimpleArm(c, tBlk)
		fJoin, fOK := vr.isSimpleArm(c, fBlk)
		if tOK && fOK && tJoin.GID() == fJoin.GID() && len(tBlk.J.Args) == len(fBlk.J.Args) {
			merged := make([]ir.Def, len(tBlk.J.Args))
			for i := range tBlk.J.Args {
				tv := vr.lanes(tBlk.J.Args[i])
				fv := vr.lanes(fBlk.J.Args[i])
				laneVals := make([]ir.Def, vr.width)
				for l := 0; l < vr.width; l++ {
					laneVals[l] = vr.w.Select(cond[l], tv[l], fv[l])
				}
				merged[i] = vr.pack(laneVals)
			}
			njoin := vr.vectorize(tJoin)
			vr.w.SetJump(nc, njoin, merged)
			return nc
		}

		// Unsupported shape: fall back to scalar control from here on. Lane 0
		// drives which original (unvectorized) arm every lane follows.
		vr.w.SetJump(nc, vr.w.Branch(), []ir.Def{cond[0], tBlk, fBlk})
		return nc
	}

	args := make([]ir.Def, len(c.J.Args))
	for i, a := range c.J.Args {
		args[i] = vr.pack(vr.lanes(a))
	}
	if nextC, ok := c.J.Callee.(*ir.Continuation); ok && vr.sc.Contains(nextC) {
		vr.w.SetJump(nc, vr.vectorize(nextC), args)
	} else {
		vr.w.SetJump(nc, c.J.Callee, args)
	}
	return nc
}
