package pass

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartialEvaluationSpecializesRunWrappedCall(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	ext := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)

	callee := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "callee")
	x := callee.Param(0)
	one := w.Lit(ir.I32, int64(1))
	sum := w.ArithOp(ir.Add, x, one)
	w.SetJump(callee, ext, []ir.Def{sum})

	entry := w.Continuation(w.Pi().(*ir.PiType), ir.FlagNone, "entry")
	w.MarkExternal(entry)
	five := w.Lit(ir.I32, int64(5))
	w.SetJump(entry, w.RunMarker(callee), []ir.Def{five})

	PartialEvaluation(w)

	clone, ok := entry.J.Callee.(*ir.Continuation)
	require.True(t, ok, "the run marker must be gone, leaving a plain continuation callee")
	assert.NotEqual(t, callee.GID(), clone.GID())
	assert.Empty(t, entry.J.Args, "the one bound argument leaves nothing kept")

	finalCallee, ok := clone.J.Callee.(*ir.Continuation)
	require.True(t, ok)
	assert.Equal(t, ext.GID(), finalCallee.GID())
	require.Len(t, clone.J.Args, 1)
	lit, ok := clone.J.Args[0].(*ir.Literal)
	require.True(t, ok, "5 + 1 should have constant-folded during specialization")
	assert.Equal(t, int64(6), lit.AsInt())
}

func TestPartialEvaluationKeepsHltArgumentUnbound(t *testing.T) {
	w := ir.NewWorld()
	i32 := w.TypeI32()
	ext := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)

	callee := w.Continuation(w.Pi(i32, i32).(*ir.PiType), ir.FlagNone, "callee")
	x, y := callee.Param(0), callee.Param(1)
	sum := w.ArithOp(ir.Add, x, y)
	w.SetJump(callee, ext, []ir.Def{sum})

	entry := w.Continuation(w.Pi(i32).(*ir.PiType), ir.FlagNone, "entry")
	w.MarkExternal(entry)
	five := w.Lit(ir.I32, int64(5))
	yy := entry.Param(0)
	w.SetJump(entry, w.RunMarker(callee), []ir.Def{five, w.HltMarker(yy)})

	PartialEvaluation(w)

	clone, ok := entry.J.Callee.(*ir.Continuation)
	require.True(t, ok)
	require.Len(t, clone.Params, 1, "only the hlt-blocked parameter should survive on the specialization")
	require.Len(t, entry.J.Args, 1)
	assert.Equal(t, yy.GID(), entry.J.Args[0].GID(), "the hlt wrapper should be stripped, leaving the underlying value")
}
