package scope

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds entry -> branch(cond) -> {t, f} -> join, where join
// has no jump of its own, and returns the pieces for assertions.
func buildDiamond(w *ir.World) (entry, tBlk, fBlk, join *ir.Continuation) {
	unitPi := w.Pi().(*ir.PiType)
	entryPi := w.Pi(w.TypeBool()).(*ir.PiType)
	entry = w.Continuation(entryPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	tBlk = w.Continuation(unitPi, ir.FlagNone, "t")
	fBlk = w.Continuation(unitPi, ir.FlagNone, "f")
	join = w.Continuation(unitPi, ir.FlagNone, "join")

	w.JumpTo(tBlk, join)
	w.JumpTo(fBlk, join)

	cond := entry.Param(0) // not a literal, so BranchJump stays conditional
	w.BranchJump(entry, cond, tBlk, fBlk)
	return
}

func TestScopeClosureContainsReachableContinuations(t *testing.T) {
	w := ir.NewWorld()
	entry, tBlk, fBlk, join := buildDiamond(w)

	s := New(w, entry)
	assert.True(t, s.Contains(entry))
	assert.True(t, s.Contains(tBlk))
	assert.True(t, s.Contains(fBlk))
	assert.True(t, s.Contains(join))
}

func TestForwardCFGSuccessorsMatchBranch(t *testing.T) {
	w := ir.NewWorld()
	entry, tBlk, fBlk, join := buildDiamond(w)
	s := New(w, entry)

	g := ForwardCFG(s)
	succs := g.Succs(entry)
	require.Len(t, succs, 2)

	names := map[string]bool{}
	for _, c := range succs {
		names[c.Name()] = true
	}
	assert.True(t, names["t"])
	assert.True(t, names["f"])

	assert.Equal(t, []*ir.Continuation{join}, g.Succs(tBlk))
	assert.Equal(t, []*ir.Continuation{join}, g.Succs(fBlk))
}

func TestDominatorsOfDiamond(t *testing.T) {
	w := ir.NewWorld()
	entry, tBlk, fBlk, join := buildDiamond(w)
	s := New(w, entry)
	g := ForwardCFG(s)
	dt := Dominators(g)

	assert.Equal(t, entry, dt.IDom(tBlk))
	assert.Equal(t, entry, dt.IDom(fBlk))
	assert.Equal(t, entry, dt.IDom(join), "join is reached from both branches, so only entry dominates it")
	assert.Equal(t, entry, dt.LCA(tBlk, fBlk))
}

// buildCallerCallee builds two independent top-level functions: caller
// tail-calls callee (an ordinary internal call, not a return), and callee
// has its own internal continuation body that caller never touches
// directly.
func buildCallerCallee(w *ir.World) (caller, callee, calleeBody *ir.Continuation) {
	unitPi := w.Pi().(*ir.PiType)
	caller = w.Continuation(unitPi, ir.FlagNone, "caller")
	w.MarkExternal(caller)

	callee = w.Continuation(unitPi, ir.FlagNone, "callee")
	w.MarkExternal(callee)
	calleeBody = w.Continuation(unitPi, ir.FlagNone, "calleeBody")
	w.JumpTo(callee, calleeBody)

	w.JumpTo(caller, callee)
	return
}

func TestScopeDoesNotAbsorbUnrelatedExternalFunction(t *testing.T) {
	w := ir.NewWorld()
	caller, callee, calleeBody := buildCallerCallee(w)

	s := New(w, caller)
	assert.True(t, s.Contains(caller))
	assert.True(t, s.Contains(callee), "callee is a direct jump target, so it is still a scope member")
	assert.False(t, s.Contains(calleeBody), "callee is its own external function; its body must not be absorbed into caller's scope")
}

// buildMultiExit builds a function with two distinct order-1 return
// continuation parameters (k1, k2): t tail-calls k1, f tail-calls k2.
// Neither target is a named Continuation, so both t and f are genuine CFG
// sinks within the scope -- the "several distinct exits" case spec.md
// section 4.4 calls for a synthetic sink over.
func buildMultiExit(w *ir.World) (entry, tBlk, fBlk *ir.Continuation) {
	boolT := w.TypeBool()
	unitPi := w.Pi().(*ir.PiType)
	kPi := w.Pi().(*ir.PiType) // order-1: a zero-arg continuation type
	entryPi := w.Pi(boolT, kPi, kPi).(*ir.PiType)
	entry = w.Continuation(entryPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	tBlk = w.Continuation(unitPi, ir.FlagNone, "t")
	fBlk = w.Continuation(unitPi, ir.FlagNone, "f")
	w.JumpTo(tBlk, entry.Param(1))
	w.JumpTo(fBlk, entry.Param(2))
	w.BranchJump(entry, entry.Param(0), tBlk, fBlk)
	return
}

func TestScopeBuildsSyntheticExitForMultipleReturns(t *testing.T) {
	w := ir.NewWorld()
	entry, tBlk, fBlk := buildMultiExit(w)
	s := New(w, entry)

	require.True(t, s.SyntheticExit(), "two distinct return continuations should force a synthetic sink")
	leaves := s.ExitLeaves()
	require.Len(t, leaves, 2)
	names := map[string]bool{}
	for _, l := range leaves {
		names[l.Name()] = true
	}
	assert.True(t, names["t"])
	assert.True(t, names["f"])
	assert.NotEqual(t, entry.GID(), s.Exit().GID())
	assert.NotEqual(t, tBlk.GID(), s.Exit().GID())
	assert.NotEqual(t, fBlk.GID(), s.Exit().GID())

	// BackwardCFG must root at the synthetic sink and see both real leaves
	// as its (reversed) successors, without either leaf's real jump having
	// been rewritten.
	bcfg := BackwardCFG(s)
	assert.Equal(t, s.Exit().GID(), bcfg.Root().GID())
	backSuccs := bcfg.Succs(s.Exit())
	require.Len(t, backSuccs, 2)
	backNames := map[string]bool{}
	for _, c := range backSuccs {
		backNames[c.Name()] = true
	}
	assert.True(t, backNames["t"])
	assert.True(t, backNames["f"])
	assert.Equal(t, entry.Param(1), tBlk.J.Callee, "t's real jump target is unchanged")
	assert.Equal(t, entry.Param(2), fBlk.J.Callee, "f's real jump target is unchanged")
}

func TestLoopDepthOfSelfLoop(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	header := w.Continuation(unitPi, ir.FlagNone, "header")
	w.JumpTo(entry, header)
	w.JumpTo(header, header) // self-loop

	s := New(w, entry)
	g := ForwardCFG(s)
	lt := Loops(g)

	assert.Equal(t, 0, lt.LoopDepth(entry))
	assert.Equal(t, 1, lt.LoopDepth(header))
	assert.True(t, lt.IsLoopHeader(header))
}
