package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashConsingIdentity(t *testing.T) {
	t.Run("EqualLiteralsAreIdentical", func(t *testing.T) {
		w := NewWorld()
		a := w.Lit(I32, int64(42))
		b := w.Lit(I32, int64(42))
		assert.Same(t, a, b, "equal literals must hash-cons to one node")
	})

	t.Run("EqualArithOpsAreIdentical", func(t *testing.T) {
		w := NewWorld()
		x := w.Lit(I32, int64(3))
		y := w.Lit(I32, int64(5))
		a := w.ArithOp(Add, x, y)
		b := w.ArithOp(Add, x, y)
		assert.Same(t, a, b)
	})

	t.Run("DistinctPayloadsDiffer", func(t *testing.T) {
		w := NewWorld()
		a := w.Lit(I32, int64(1))
		b := w.Lit(I32, int64(2))
		assert.NotEqual(t, a.GID(), b.GID())
	})

	t.Run("SigmaOfSameElementsIsIdentical", func(t *testing.T) {
		w := NewWorld()
		s1 := w.Sigma(w.TypeI32(), w.TypeBool())
		s2 := w.Sigma(w.TypeI32(), w.TypeBool())
		assert.Same(t, s1, s2)
	})

	t.Run("NamedSigmasAreNeverUnified", func(t *testing.T) {
		w := NewWorld()
		a := w.NamedSigma(1, "List")
		b := w.NamedSigma(1, "List")
		assert.NotSame(t, a, b, "nominal kinds are never hash-consed")
	})
}

func TestConstantFolding(t *testing.T) {
	t.Run("AddLiterals", func(t *testing.T) {
		w := NewWorld()
		r := w.ArithOp(Add, w.Lit(I32, int64(2)), w.Lit(I32, int64(3)))
		lit, ok := r.(*Literal)
		require.True(t, ok)
		assert.Equal(t, int64(5), lit.AsInt())
	})

	t.Run("AddZeroIdentity", func(t *testing.T) {
		w := NewWorld()
		x := w.ArithOp(Add, w.Lit(I32, int64(1)), w.Lit(I32, int64(2)))
		r := w.ArithOp(Add, x, w.Zero(I32))
		assert.Same(t, x, r)
	})

	t.Run("MulOneIdentity", func(t *testing.T) {
		w := NewWorld()
		y := w.Lit(I32, int64(9))
		r := w.ArithOp(Mul, w.One(I32), y)
		assert.Same(t, y, r)
	})

	t.Run("DivByZeroIsBottom", func(t *testing.T) {
		w := NewWorld()
		r := w.ArithOp(Div, w.Lit(I32, int64(7)), w.Zero(I32))
		_, ok := r.(*Bottom)
		assert.True(t, ok)
	})

	t.Run("SelfSubtractionIsZero", func(t *testing.T) {
		w := NewWorld()
		p := newParam(w, I32)
		r := w.ArithOp(Sub, p, p)
		lit, ok := r.(*Literal)
		require.True(t, ok)
		assert.Equal(t, int64(0), lit.AsInt())
	})

	t.Run("DeadSelectFolds", func(t *testing.T) {
		w := NewWorld()
		cond := newParam(w, Bool)
		v := w.Lit(I32, int64(11))
		r := w.Select(cond, v, v)
		assert.Same(t, v, r)
	})

	t.Run("RelOpLiterals", func(t *testing.T) {
		w := NewWorld()
		r := w.RelOp(Lt, w.Lit(I32, int64(1)), w.Lit(I32, int64(2)))
		lit, ok := r.(*Literal)
		require.True(t, ok)
		assert.True(t, lit.AsBool())
	})
}

func TestJumpArityContractViolation(t *testing.T) {
	w := NewWorld()
	callee := w.Continuation(w.Pi(w.TypeI32()).(*PiType), FlagNone, "callee")
	caller := w.Continuation(w.pi0, FlagNone, "caller")

	assert.Panics(t, func() {
		w.SetJump(caller, callee, nil)
	}, "jumping with the wrong arity is a contract violation")
}

func TestContinuationClassification(t *testing.T) {
	t.Run("BasicBlockHasNoOrderOneParam", func(t *testing.T) {
		w := NewWorld()
		c := w.Continuation(w.Pi(w.TypeI32(), w.TypeBool()).(*PiType), FlagNone, "bb")
		assert.True(t, c.IsBasicBlock())
		assert.False(t, c.IsReturning())
	})

	t.Run("ReturningHasExactlyOneOrderOneParam", func(t *testing.T) {
		w := NewWorld()
		retPi := w.pi0
		c := w.Continuation(w.Pi(w.TypeI32(), retPi).(*PiType), FlagNone, "f")
		assert.True(t, c.IsReturning())
		assert.Equal(t, 1, c.ReturnParam().Index)
	})
}

func TestReplacePropagatesTransitively(t *testing.T) {
	w := NewWorld()
	x := newParam(w, I32)
	y := w.Lit(I32, int64(4))
	sum := w.ArithOp(Add, x, y) // not folded: x is not a literal
	tup := w.Tuple(sum, y)

	assert.Equal(t, 1, len(w.Uses(sum)))

	target := w.Continuation(w.Pi(tup.Type().(*SigmaType)).(*PiType), FlagNone, "target")
	caller := w.Continuation(w.pi0, FlagNone, "caller")
	w.MarkExternal(caller)
	w.SetJump(caller, target, []Def{tup})

	replacement := w.Lit(I32, int64(100))
	w.Replace(x, replacement)

	require.Equal(t, 1, len(caller.J.Args))
	newTup, ok := caller.J.Args[0].(*Tuple)
	require.True(t, ok, "replacing x with a literal should re-canonicalize the tuple")
	extracted, ok := newTup.Op(0).(*Literal)
	require.True(t, ok, "the tuple's first element should have re-folded the Add into a literal")
	assert.Equal(t, int64(104), extracted.AsInt())
}

func TestCleanupRemovesUnreachable(t *testing.T) {
	w := NewWorld()
	entry := w.Continuation(w.pi0, FlagNone, "entry")
	w.MarkExternal(entry)
	target := w.Continuation(w.pi0, FlagNone, "target")
	w.JumpTo(entry, target)
	dead := w.Continuation(w.pi0, FlagNone, "dead")

	before := len(w.Defs())
	w.Cleanup()
	after := len(w.Defs())
	assert.Less(t, after, before, "cleanup should release the unreachable continuation")

	found := false
	for _, d := range w.Defs() {
		if d == Def(dead) {
			found = true
		}
	}
	assert.False(t, found, "dead continuation must not survive cleanup")
}

func TestVerifyReportsNothingOnWellFormedGraph(t *testing.T) {
	w := NewWorld()
	entry := w.Continuation(w.pi0, FlagNone, "entry")
	w.MarkExternal(entry)
	cond := w.Lit(Bool, true)
	tBranch := w.Continuation(w.pi0, FlagNone, "t")
	fBranch := w.Continuation(w.pi0, FlagNone, "f")
	w.MarkExternal(tBranch)
	w.MarkExternal(fBranch)
	w.BranchJump(entry, cond, tBranch, fBranch)
	errs := Verify(w)
	assert.Empty(t, errs)
}

// newParam is a test helper that returns an order-0 Param by building a
// throwaway single-parameter continuation.
func newParam(w *World, k PrimKind) *Param {
	c := w.Continuation(w.Pi(w.primTypes[k]).(*PiType), FlagNone, "")
	return c.Params[0]
}
