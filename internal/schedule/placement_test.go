package schedule

import (
	"testing"

	"kanso/internal/ir"
	"kanso/internal/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementKeepsComputationInsideLoop(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	i32 := w.TypeI32()
	headerPi := w.Pi(i32).(*ir.PiType)

	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	header := w.Continuation(headerPi, ir.FlagNone, "header")
	one := w.Lit(ir.I32, int64(1))
	zero := w.Lit(ir.I32, int64(0))

	w.SetJump(entry, header, []ir.Def{zero})
	i := header.Param(0)
	next := w.ArithOp(ir.Add, i, one) // not foldable: i is a param
	w.SetJump(header, header, []ir.Def{next})

	sc := scope.New(w, entry)
	places := Place(w, sc)

	found := false
	for gid, prims := range places {
		for _, d := range prims {
			if d == ir.Def(next) {
				found = true
				assert.Equal(t, header.GID(), gid, "the increment must be placed inside the loop header, not hoisted to entry")
			}
		}
	}
	require.True(t, found, "the live ArithOp must appear in some continuation's place list")
}

func TestPlacementPinsSlotAndEnterEarly(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	next := w.Continuation(unitPi, ir.FlagNone, "next")
	ext := w.Continuation(w.Pi(w.TypeI32()).(*ir.PiType), ir.FlagNone, "ext")
	w.MarkExternal(ext)

	frame := w.Enter(entry) // frame token, pinned early by construction
	slot := w.AllocSlot(w.TypeI32(), frame)
	// The slot's only use is in next, so its late point is next; the pin
	// must still place both the frame and the slot at entry.
	w.SetJump(next, ext, []ir.Def{w.Load(slot)})
	w.SetJump(entry, next, nil)

	sc := scope.New(w, entry)
	places := Place(w, sc)

	assertPlaced := func(d ir.Def, want ir.GID) {
		for gid, prims := range places {
			for _, p := range prims {
				if p == d {
					assert.Equal(t, want, gid)
					return
				}
			}
		}
		t.Fatalf("%s was never placed", d.String())
	}
	assertPlaced(frame, entry.GID())
	assertPlaced(slot, entry.GID())
}
