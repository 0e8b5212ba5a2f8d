package textual_test

import (
	"strings"
	"testing"

	"kanso/internal/ir"
	"kanso/internal/textual"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRoundTripsThroughParseString(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entryPi := w.Pi(w.TypeI32()).(*ir.PiType)
	entry := w.Continuation(entryPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	exit := w.Continuation(unitPi, ir.FlagNone, "exit")
	w.MarkExternal(exit)

	sum := w.ArithOp(ir.Add, entry.Param(0), w.Lit(ir.I32, uint64(1)))
	w.JumpTo(exit, exit)
	w.SetJump(entry, entry, []ir.Def{sum})

	out := textual.Print(w)
	assert.Contains(t, out, "lam extern entry(")
	assert.Contains(t, out, "add")
	assert.Contains(t, out, "jump @entry(")

	w2, sink, err := textual.ParseString("roundtrip.thorin", out)
	require.NoError(t, err)
	assert.Empty(t, sink.Diagnostics())

	var rebuilt *ir.Continuation
	for _, d := range w2.Defs() {
		if c, ok := d.(*ir.Continuation); ok && c.Name() == "entry" {
			rebuilt = c
		}
	}
	require.NotNil(t, rebuilt)
	assert.True(t, rebuilt.IsExternal())
}

func TestPrintCanonicalizesNameCollidingWithReservedMnemonic(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	load := w.Continuation(unitPi, ir.FlagNone, "load")
	w.MarkExternal(load)
	w.JumpTo(load, load)

	out := textual.Print(w)
	assert.False(t, strings.Contains(out, "@load("), "a continuation literally named \"load\" must not print as the bare reserved mnemonic")
	assert.Contains(t, out, "@Load(")
}

func TestPrintEmitsForwardDeclarationForEmptyContinuation(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	_ = w.Continuation(unitPi, ir.FlagExternal, "stub")

	out := textual.Print(w)
	assert.Contains(t, out, "lam extern stub();\n")
}
