// Package pass implements the transformation passes of spec.md section 4.7
// and the cleanup sweep of section 4.8 as pure functions `World -> ()`,
// matching the "Passes: pure functions World -> () mutating the World"
// line of section 6's external interfaces. DCE/UCE/Cleanup themselves are
// mechanism that lives on World (internal/ir/rewrite.go) since it needs
// direct access to the node tables; the wrappers here are the public
// pass-shaped entry points spec.md's component table expects.
package pass

import "kanso/internal/ir"

// DCE releases every Def not reachable from an external continuation
// (spec.md 4.8).
func DCE(w *ir.World) { w.DCE() }
