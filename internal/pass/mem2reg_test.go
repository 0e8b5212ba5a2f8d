package pass

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamondWithSlot builds entry -> branch(cond) -> {t, f} -> join, where
// t and f each store a distinct literal into a shared slot and join loads
// it, returning the pieces needed to assert on the promoted value.
func buildDiamondWithSlot(w *ir.World) (entry, tBlk, fBlk, join *ir.Continuation, load ir.Def) {
	unitPi := w.Pi().(*ir.PiType)
	entryPi := w.Pi(w.TypeBool()).(*ir.PiType)
	entry = w.Continuation(entryPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	tBlk = w.Continuation(unitPi, ir.FlagNone, "t")
	fBlk = w.Continuation(unitPi, ir.FlagNone, "f")
	// join starts with a single Unit-typed parameter that does nothing but
	// carry the incoming Store token -- a Store's own Type() is Unit, so this
	// keeps every jump's arity matching its callee's pi while still pulling
	// the store into the scope's operand-edge closure (this IR has no
	// separate memory token to thread instead). mem2reg appends the real
	// promoted i32 parameter alongside it.
	join = w.Continuation(w.Pi(w.Unit()).(*ir.PiType), ir.FlagNone, "join")

	frame := w.Enter(entry)
	slot := w.AllocSlot(w.TypeI32(), frame)

	ten := w.Lit(ir.I32, int64(10))
	twenty := w.Lit(ir.I32, int64(20))

	st1 := w.Store(slot, ten)
	w.SetJump(tBlk, join, []ir.Def{st1})
	st2 := w.Store(slot, twenty)
	w.SetJump(fBlk, join, []ir.Def{st2})

	load = w.Load(slot)
	ext := w.Continuation(w.Pi(w.TypeI32()).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)
	w.SetJump(join, ext, []ir.Def{load})

	cond := entry.Param(0)
	w.BranchJump(entry, cond, tBlk, fBlk)
	return
}

func TestMem2RegPromotesSlotAcrossMerge(t *testing.T) {
	w := ir.NewWorld()
	entry, _, _, join, load := buildDiamondWithSlot(w)
	_ = entry

	Mem2Reg(w)

	// The load must be gone: DCE sweeps it once nothing references its GID
	// any more (World.Replace redirects every use to the promoted value).
	_, stillPresent := w.Defs()[load.GID()]
	assert.False(t, stillPresent, "load should have been replaced and swept by mem2reg")

	require.NotEmpty(t, join.Params, "join must have gained a phixy parameter for the merged slot value")
}

// buildBranchDirectToMerge builds entry -> branch(cond) -> {join, f}, where
// join is reached two ways: directly as one of the branch intrinsic's own
// arms, and through f's ordinary unconditional jump. join's incoming value
// therefore has to be threaded across both a branch edge (fixed arity 3,
// cannot grow) and a plain jump edge (free to grow) in the same promotion.
func buildBranchDirectToMerge(w *ir.World) (entry, fBlk, join *ir.Continuation) {
	unitPi := w.Pi().(*ir.PiType)
	entryPi := w.Pi(w.TypeBool()).(*ir.PiType)
	entry = w.Continuation(entryPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	fBlk = w.Continuation(unitPi, ir.FlagNone, "f")
	join = w.Continuation(unitPi, ir.FlagNone, "join")

	frame := w.Enter(entry)
	slot := w.AllocSlot(w.TypeI32(), frame)
	load := w.Load(slot)
	ext := w.Continuation(w.Pi(w.TypeI32()).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)
	w.SetJump(join, ext, []ir.Def{load})

	w.JumpTo(fBlk, join)

	cond := entry.Param(0)
	w.BranchJump(entry, cond, join, fBlk)
	return
}

// TestMem2RegThreadsPhixyAcrossBranchEdge is the regression case for the
// panic a maintainer found: promoting a slot whose merge point is reached
// directly by a branch arm used to append a trailing argument straight onto
// the branch intrinsic's own jump, growing it past its fixed arity of 3
// (cond, t, f) and tripping world.go's jump-arity contract check. threadValue
// must route that edge through a synthesized trampoline instead, leaving the
// branch's own arity untouched.
func TestMem2RegThreadsPhixyAcrossBranchEdge(t *testing.T) {
	w := ir.NewWorld()
	entry, fBlk, join := buildBranchDirectToMerge(w)
	_ = fBlk

	beforeJoinParams := len(join.Params)

	require.NotPanics(t, func() { Mem2Reg(w) })

	require.Len(t, entry.J.Args, 3, "the branch intrinsic's arity must stay fixed at cond/t/f")
	tc, ok := entry.J.Args[1].(*ir.Continuation)
	require.True(t, ok, "the branch's true arm must still be a continuation")
	assert.NotEqual(t, join.GID(), tc.GID(),
		"the true arm must now point at a forwarding trampoline, not directly at join")

	assert.Greater(t, len(join.Params), beforeJoinParams,
		"join must have gained a phixy parameter for the merged slot value")
}

func TestMem2RegSkipsEscapingSlot(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	next := w.Continuation(w.Pi(w.Ptr(w.TypeI32(), -1, 0, 0)).(*ir.PiType), ir.FlagNone, "next")
	w.MarkExternal(next)

	frame := w.Enter(entry)
	slot := w.AllocSlot(w.TypeI32(), frame)
	// slot's address itself is passed on, so it escapes and must not be promoted.
	w.SetJump(entry, next, []ir.Def{slot})

	beforeParams := len(next.Params)
	Mem2Reg(w)
	assert.Equal(t, beforeParams, len(next.Params), "an escaping slot must not gain a phixy parameter")
}
