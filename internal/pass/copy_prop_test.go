package pass

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyPropDropsParamWhenEveryCallerAgrees(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	target := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "target")
	body := target.Param(0)

	callerA := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "callerA")
	w.MarkExternal(callerA)
	callerB := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "callerB")
	w.MarkExternal(callerB)

	answer := w.Lit(ir.I32, int64(42))
	w.SetJump(callerA, target, []ir.Def{answer})
	w.SetJump(callerB, target, []ir.Def{answer})

	use := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "use")
	w.MarkExternal(use)
	w.SetJump(target, use, []ir.Def{body})

	CopyProp(w)

	assert.Empty(t, target.Params, "the agreed-upon parameter should be dropped")
	require.Len(t, target.J.Args, 1)
	assert.Equal(t, answer, target.J.Args[0], "uses of the dropped parameter must be substituted with the agreed value")
	assert.Empty(t, callerA.J.Args)
	assert.Empty(t, callerB.J.Args)
}

// TestCopyPropDedupesCallerAppearingTwiceInUses exercises dropParam's guard
// against a caller that shows up twice in w.Uses(c): here caller both jumps
// to target (the callee operand) and passes target itself back in as a data
// argument (a self-referencing continuation value), so target.GID() appears
// at two distinct operand indices of the same caller. Before the dedupe
// guard this patched caller's jump twice and shrank its argument list one
// slot too many, panicking on the resulting arity mismatch.
func TestCopyPropDedupesCallerAppearingTwiceInUses(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	kPi := w.Pi().(*ir.PiType) // order-1: a zero-arg continuation type

	target := w.Continuation(w.Pi(i32, kPi).(*ir.PiType), ir.FlagNone, "target")
	use := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "use")
	w.MarkExternal(use)
	w.SetJump(target, use, []ir.Def{target.Param(0)})

	caller := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "caller")
	w.MarkExternal(caller)

	answer := w.Lit(ir.I32, int64(42))
	w.SetJump(caller, target, []ir.Def{answer, target})

	assert.NotPanics(t, func() { CopyProp(w) })

	// Both parameters end up uniquely determined by caller's single jump (the
	// literal and the self-reference), so CopyProp converges with target
	// fully nullary; the point of this test is that it gets there without
	// dropParam's duplicate-patch panic along the way.
	assert.Empty(t, target.Params)
	assert.Empty(t, caller.J.Args)
	require.Len(t, target.J.Args, 1, "target's own jump should still carry the substituted literal")
	assert.Equal(t, answer, target.J.Args[0])
}

func TestCopyPropKeepsParamWhenCallersDisagree(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	target := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "target")

	callerA := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "callerA")
	w.MarkExternal(callerA)
	callerB := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "callerB")
	w.MarkExternal(callerB)

	one := w.Lit(ir.I32, int64(1))
	two := w.Lit(ir.I32, int64(2))
	w.SetJump(callerA, target, []ir.Def{one})
	w.SetJump(callerB, target, []ir.Def{two})

	changed := CopyProp(w)

	assert.False(t, changed)
	require.Len(t, target.Params, 1, "disagreeing callers must keep the parameter")
}
