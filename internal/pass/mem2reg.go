package pass

import (
	"sort"

	"kanso/internal/ir"
	"kanso/internal/schedule"
	"kanso/internal/scope"
)

// Mem2Reg promotes stack-slot loads/stores to continuation parameters by
// incremental SSA construction with delayed phi ("phixy") insertion (spec.md
// 4.7.3). A slot is promoted only if it never escapes: its pointer value is
// never used anywhere except as the ptr operand of a Load or Store on
// itself -- that rules out passing its address to an opaque call, matching
// condition (b) of 4.7.3. Condition (a) (every write dominated by the
// slot's Enter) holds automatically in this graph: a Store can only be
// reachable at all by being threaded into some continuation's jump
// arguments, which forces it into the dominance region of whatever Enter
// produced its target's frame.
//
// This IR threads no explicit memory token between Load/Store (unlike
// thorin's later token-based memory model), so there is no structural
// signal for "the order two stores to the same slot executed in". This
// implementation uses construction order (GID) within a continuation's
// already-computed placement as a stand-in for program order -- correct for
// straight-line blocks built in the obvious way, and documented here rather
// than silently assumed.
func Mem2Reg(w *ir.World) {
	scope.ForEach(w, true, func(sc *scope.Scope) {
		mem2regScope(w, sc)
	})
	w.Cleanup()
}

func mem2regScope(w *ir.World, sc *scope.Scope) {
	slots := promotableSlots(sc)
	if len(slots) == 0 {
		return
	}
	cfg := scope.ForwardCFG(sc)
	places := schedule.Place(w, sc)
	// Shared across every slot promoted in this scope: two slots promoted
	// back to back may both need to thread a phixy value across the same
	// branch edge, and the second must extend the trampoline the first one
	// synthesized rather than discovering a stale branch arg that no longer
	// points at the merge block (see threadValue).
	fwd := make(map[branchEdge]*ir.Continuation)
	for _, slot := range slots {
		newPromoter(w, cfg, slot, places, fwd).run()
	}
}

// promotableSlots returns every Slot in sc whose address never escapes,
// ordered by GID for determinism.
func promotableSlots(sc *scope.Scope) []*ir.Slot {
	var out []*ir.Slot
	for _, d := range sc.Defs() {
		if slot, ok := d.(*ir.Slot); ok && !slotEscapes(sc, slot) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GID() < out[j].GID() })
	return out
}

func slotEscapes(sc *scope.Scope, slot *ir.Slot) bool {
	for _, u := range sc.World().Uses(slot) {
		switch u.User.(type) {
		case *ir.Load:
			if u.Index != 0 {
				return true
			}
		case *ir.Store:
			if u.Index != 0 {
				return true // stored as the *value*, not the address: the address escapes
			}
		default:
			return true
		}
	}
	return false
}

// promoter runs Braun-style incremental SSA construction for one slot: a
// fresh parameter is installed at every CFG merge point reached without a
// single dominating definition, and every Load of the slot is replaced by
// the value visible at that point.
type promoter struct {
	w      *ir.World
	cfg    *scope.CFG
	slot   *ir.Slot
	elem   ir.Type
	places schedule.Places
	fwd    map[branchEdge]*ir.Continuation

	start map[ir.GID]ir.Def // value of the slot at a block's entry
	end   map[ir.GID]ir.Def // value of the slot at a block's exit
}

func newPromoter(w *ir.World, cfg *scope.CFG, slot *ir.Slot, places schedule.Places, fwd map[branchEdge]*ir.Continuation) *promoter {
	return &promoter{
		w: w, cfg: cfg, slot: slot, elem: slot.Type().(*ir.PtrType).Elem(),
		places: places,
		fwd:    fwd,
		start:  make(map[ir.GID]ir.Def),
		end:    make(map[ir.GID]ir.Def),
	}
}

// branchEdge identifies one arm of a branch intrinsic jump, keyed by the
// branching continuation and the merge block it leads to on that arm.
type branchEdge struct {
	pred, target ir.GID
}

// threadValue appends v as the trailing jump argument that feeds target's
// freshly appended phixy parameter on the edge from pred. When pred reaches
// target by an ordinary unconditional jump, that is a plain argument-list
// append: the callee is unchanged, so neither the arity contract nor any
// cached CFG edge is disturbed.
//
// When pred reaches target through the branch intrinsic, target is one of
// the branch's two continuation-valued arguments directly -- and the branch
// intrinsic's own pi is fixed at arity 3 (cond, t, f), so it can never grow
// to carry a trailing data argument (world.go's jump-arity contract would
// panic on the very next SetJump). A single-predecessor, zero-argument
// trampoline is synthesized on that arm instead: pred's branch keeps its
// arity, the trampoline takes the extra argument and forwards it on with an
// ordinary jump into target. The trampoline is memoized per (pred, target)
// so a second slot threading its own phixy value across the same edge
// extends the existing trampoline's argument list instead of re-scanning
// pred's branch args, which by then point at the trampoline, not target.
func (p *promoter) threadValue(pred, target *ir.Continuation, v ir.Def) {
	if pred.J.Callee.GID() != p.w.Branch().GID() {
		p.w.SetJump(pred, pred.J.Callee, append(append([]ir.Def(nil), pred.J.Args...), v))
		return
	}
	key := branchEdge{pred: pred.GID(), target: target.GID()}
	if t, ok := p.fwd[key]; ok {
		p.w.SetJump(t, t.J.Callee, append(append([]ir.Def(nil), t.J.Args...), v))
		return
	}
	t := p.w.Continuation(p.w.Pi().(*ir.PiType), ir.FlagNone, pred.Name()+".fwd")
	p.w.SetJump(t, target, []ir.Def{v})
	p.fwd[key] = t
	args := append([]ir.Def(nil), pred.J.Args...)
	patched := false
	for i := 1; i <= 2; i++ {
		if cc, ok := args[i].(*ir.Continuation); ok && cc.GID() == target.GID() {
			args[i] = t
			patched = true
		}
	}
	if !patched {
		panic(p.w.Diag.ContractViolation(pred.GID().String(),
			"mem2reg: branch predecessor does not target %s on either arm", target.String()))
	}
	p.w.SetJump(pred, p.w.Branch(), args)
}

func (p *promoter) run() {
	for _, c := range p.cfg.RPO() {
		p.blockEndValue(c)
	}
	for _, c := range p.cfg.RPO() {
		p.rewriteLoads(c)
	}
}

// blockEvents returns, in construction order, every Load/Store in c's
// placed instruction list that references this slot.
func (p *promoter) blockEvents(c *ir.Continuation) []ir.Def {
	var out []ir.Def
	for _, d := range p.places[c.GID()] {
		ptr := slotPtrOperand(d)
		if ptr != nil && ptr.GID() == p.slot.GID() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GID() < out[j].GID() })
	return out
}

func slotPtrOperand(d ir.Def) ir.Def {
	switch v := d.(type) {
	case *ir.Store:
		return v.Ptr()
	case *ir.Load:
		return v.Ptr()
	default:
		return nil
	}
}

// blockStartValue resolves the value visible at the entry of c: its single
// predecessor's exit value if there is exactly one, an eagerly-installed
// phixy parameter (to break cycles through loop back-edges) patched into
// every predecessor's jump if there is more than one, or Bottom if c is
// itself the scope entry (nothing written yet).
func (p *promoter) blockStartValue(c *ir.Continuation) ir.Def {
	if v, ok := p.start[c.GID()]; ok {
		return v
	}
	preds := p.cfg.Preds(c)
	switch len(preds) {
	case 0:
		v := p.w.Bottom(p.elem)
		p.start[c.GID()] = v
		return v
	case 1:
		if preds[0] == c {
			// c is its own sole predecessor (a self-loop): caching a
			// placeholder before recursing, exactly like the multi-pred
			// case below, is required here too -- otherwise
			// blockStartValue(c) -> blockEndValue(c) -> blockStartValue(c)
			// recurses forever, since nothing would have been cached yet.
			param := p.w.AppendParam(c, p.elem)
			p.start[c.GID()] = param
			v := p.blockEndValue(c)
			p.threadValue(c, c, v)
			return param
		}
		v := p.blockEndValue(preds[0])
		p.start[c.GID()] = v
		return v
	default:
		param := p.w.AppendParam(c, p.elem)
		p.start[c.GID()] = param
		for _, pred := range preds {
			v := p.blockEndValue(pred)
			p.threadValue(pred, c, v)
		}
		return param
	}
}

func (p *promoter) blockEndValue(c *ir.Continuation) ir.Def {
	if v, ok := p.end[c.GID()]; ok {
		return v
	}
	cur := p.blockStartValue(c)
	for _, e := range p.blockEvents(c) {
		if st, ok := e.(*ir.Store); ok {
			cur = st.Value()
		}
	}
	p.end[c.GID()] = cur
	return cur
}

func (p *promoter) rewriteLoads(c *ir.Continuation) {
	cur := p.blockStartValue(c)
	for _, e := range p.blockEvents(c) {
		switch v := e.(type) {
		case *ir.Store:
			cur = v.Value()
		case *ir.Load:
			p.w.Replace(v, cur)
		}
	}
}
