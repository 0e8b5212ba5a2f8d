package textual_test

import (
	"testing"

	"kanso/internal/ir"
	"kanso/internal/textual"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringBuildsStraightLineJump(t *testing.T) {
	src := `
lam extern entry(x: i32) {
    %t = add %x, 1:i32;
    jump @entry(%t);
}
`
	w, sink, err := textual.ParseString("test.thorin", src)
	require.NoError(t, err)
	assert.Empty(t, sink.Diagnostics())

	var entry *ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok && c.Name() == "entry" {
			entry = c
		}
	}
	require.NotNil(t, entry)
	assert.True(t, entry.IsExternal())
	assert.Equal(t, 1, entry.NumParams())

	add, ok := entry.J.Args[0].(*ir.ArithOp)
	require.True(t, ok)
	assert.Equal(t, ir.Add, add.OpKind)
	assert.Equal(t, entry.Param(0), add.Lhs())
}

func TestParseStringResolvesForwardJumpToLaterLam(t *testing.T) {
	src := `
lam extern caller() {
    jump @callee();
}

lam extern callee() {
    jump @callee();
}
`
	w, sink, err := textual.ParseString("test.thorin", src)
	require.NoError(t, err)
	assert.Empty(t, sink.Diagnostics())

	var caller, callee *ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok {
			switch c.Name() {
			case "caller":
				caller = c
			case "callee":
				callee = c
			}
		}
	}
	require.NotNil(t, caller)
	require.NotNil(t, callee)
	assert.Equal(t, callee, caller.J.Callee)
	assert.Equal(t, callee, callee.J.Callee, "callee's own body jumps back to itself")
}

func TestParseStringReportsUnknownSymbolAndSubstitutesBottom(t *testing.T) {
	src := `
lam extern entry(y: i32) {
    jump @entry(%nope);
}
`
	w, sink, err := textual.ParseString("test.thorin", src)
	require.NoError(t, err)
	require.NotEmpty(t, sink.Diagnostics())

	var entry *ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok && c.Name() == "entry" {
			entry = c
		}
	}
	require.NotNil(t, entry)
	_, ok := entry.J.Args[0].(*ir.Bottom)
	assert.True(t, ok, "an unresolved local substitutes a Bottom rather than failing the whole build")
}

func TestParseStringParsesHexLiteral(t *testing.T) {
	src := `
lam extern entry(a: i32, b: i32) {
    jump @entry(0x10:i32, 0x20:i32);
}
`
	w, _, err := textual.ParseString("test.thorin", src)
	require.NoError(t, err)

	var entry *ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok && c.Name() == "entry" {
			entry = c
		}
	}
	require.NotNil(t, entry)

	// The literals go straight to the jump: as the two operands of an add
	// they would constant-fold into a single literal.
	require.Len(t, entry.J.Args, 2)
	lhs := entry.J.Args[0].(*ir.Literal)
	rhs := entry.J.Args[1].(*ir.Literal)
	assert.Equal(t, int64(0x10), lhs.AsInt())
	assert.Equal(t, int64(0x20), rhs.AsInt())
}

func TestParseStringBuildsPointerType(t *testing.T) {
	src := `
lam extern entry(p: *i32) {
    %v = load %p;
    jump @entry(%v);
}
`
	w, _, err := textual.ParseString("test.thorin", src)
	require.NoError(t, err)

	var entry *ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok && c.Name() == "entry" {
			entry = c
		}
	}
	require.NotNil(t, entry)
	ptrType, ok := entry.Param(0).Type().(*ir.PtrType)
	require.True(t, ok)
	assert.Equal(t, w.TypeI32(), ptrType.Elem())
}
