package pass

import "kanso/internal/ir"

// Cleanup runs DCE, then UCE, then a final DCE to collect whatever UCE just
// orphaned (spec.md 4.8). Re-entrant: every pass in this package calls it
// between and after its own rewrites.
func Cleanup(w *ir.World) { w.Cleanup() }
