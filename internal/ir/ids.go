// Package ir implements the hash-consed continuation-passing-style graph: the
// universe of Defs (types, literals, primops, params, continuations), the
// World that owns and canonicalizes them, and the invariants from section 3
// of the core specification.
package ir

import "fmt"

// GID is a process-unique generation id. It is stable for the lifetime of a
// Def even across mutation of a Continuation's jump (section 9: mutating a
// jump does not change the mutator's own identity).
type GID uint64

func (g GID) String() string {
	return fmt.Sprintf("%%%d", uint64(g))
}

// invalidGID marks a Def that was discarded during hash-consing (its
// tentative id was never inserted into the World's owned-def table).
const invalidGID GID = 0
