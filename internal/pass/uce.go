package pass

import "kanso/internal/ir"

// UCE releases every continuation not reachable from an external
// continuation through jump-callee/jump-argument edges restricted to
// continuations (spec.md 4.8). Their parameters and dependent primops die
// with them in the next DCE.
func UCE(w *ir.World) { w.UCE() }
