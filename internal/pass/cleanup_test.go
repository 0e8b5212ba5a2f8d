package pass

import (
	"testing"

	"kanso/internal/ir"

	"github.com/stretchr/testify/assert"
)

func TestDCEReleasesUnreachableContinuation(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	orphan := w.Continuation(unitPi, ir.FlagNone, "orphan")
	w.JumpTo(entry, entry) // entry self-loops; orphan is never jumped to

	DCE(w)

	_, present := w.Defs()[orphan.GID()]
	assert.False(t, present, "a continuation with no path from any external root must be released")
	_, stillThere := w.Defs()[entry.GID()]
	assert.True(t, stillThere)
}

func TestUCEReleasesDeadLoopHeader(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	dead := w.Continuation(unitPi, ir.FlagNone, "dead")
	w.JumpTo(dead, dead) // a self-contained loop, never reachable from entry
	w.JumpTo(entry, entry)

	UCE(w)

	_, present := w.Defs()[dead.GID()]
	assert.False(t, present, "a continuation unreachable via jump edges from any external must be released")
}

func TestCleanupIsIdempotent(t *testing.T) {
	w := ir.NewWorld()
	unitPi := w.Pi().(*ir.PiType)
	entry := w.Continuation(unitPi, ir.FlagNone, "entry")
	w.MarkExternal(entry)
	w.JumpTo(entry, entry)

	Cleanup(w)
	before := len(w.Defs())
	Cleanup(w)
	assert.Equal(t, before, len(w.Defs()), "re-running cleanup on an already-clean world must not change anything")
}
