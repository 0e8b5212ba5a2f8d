package pass

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropSubstitutesBoundParamAndKeepsTheRest(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	calleePi := w.Pi(i32, i32).(*ir.PiType)
	callee := w.Continuation(calleePi, ir.FlagNone, "callee")
	a, b := callee.Param(0), callee.Param(1)
	sum := w.ArithOp(ir.Add, a, b)

	ext := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)
	w.SetJump(callee, ext, []ir.Def{sum})

	cache := NewDropCache()
	bound := w.Lit(ir.I32, int64(7))
	clone := cache.Drop(w, callee, []ir.Def{bound, nil})

	require.Len(t, clone.Params, 1, "the bound position should be dropped, leaving only the kept parameter")
	cloneSum, ok := clone.J.Callee.(*ir.Continuation)
	require.True(t, ok)
	assert.Equal(t, ext.GID(), cloneSum.GID())
	require.Len(t, clone.J.Args, 1)
	addOp, ok := clone.J.Args[0].(*ir.ArithOp)
	require.True(t, ok, "the clone's argument should still be the rebuilt sum expression")
	assert.Equal(t, bound.GID(), addOp.Lhs().GID(), "the bound operand should be substituted with the literal")
	assert.Equal(t, clone.Params[0].GID(), addOp.Rhs().GID(), "the kept operand should reference the clone's own parameter")
}

func TestDropMemoizesBySameBoundActuals(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	callee := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "callee")
	ext := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)
	w.JumpTo(callee, ext)

	cache := NewDropCache()
	bound := w.Lit(ir.I32, int64(3))
	c1 := cache.Drop(w, callee, []ir.Def{bound})
	c2 := cache.Drop(w, callee, []ir.Def{bound})
	assert.Same(t, c1, c2, "identical (callee, bound actuals) must share one clone")
}
