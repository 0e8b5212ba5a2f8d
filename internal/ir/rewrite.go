package ir

import "fmt"

// Update replaces def's operand i with op and returns the canonical Def that
// results (section 4.1: "produces the canonical Def obtained by replacing
// one or more operands. Used to materialize substitution.").
func (w *World) Update(def Def, i int, op Def) Def {
	ops := append([]Def(nil), def.Ops()...)
	ops[i] = op
	return w.UpdateOps(def, ops)
}

// UpdateOps replaces every operand of def at once and returns the canonical
// result.
func (w *World) UpdateOps(def Def, ops []Def) Def {
	switch d := def.(type) {
	case *Continuation:
		w.SetJump(d, ops[0], ops[1:])
		return d
	case *SigmaType:
		types := asTypes(ops)
		if d.Named {
			w.SetNamedSigmaElems(d, types)
			return d
		}
		return w.Sigma(types...)
	case *PiType:
		return w.Pi(asTypes(ops)...)
	case *PtrType:
		return w.Ptr(ops[0].(Type), d.Count, d.AddrSpace, d.Device)
	case *ArithOp:
		return w.ArithOp(d.OpKind, ops[0], ops[1])
	case *RelOp:
		return w.RelOp(d.OpKind, ops[0], ops[1])
	case *ConvOp:
		return w.ConvOp(d.OpKind, ops[0], d.typ)
	case *Tuple:
		return w.Tuple(ops...)
	case *Extract:
		return w.Extract(ops[0], d.Index)
	case *Insert:
		return w.Insert(ops[0], d.Index, ops[1])
	case *Select:
		return w.Select(ops[0], ops[1], ops[2])
	case *Slot:
		return w.AllocSlot(d.typ.(*PtrType).Elem(), ops[0])
	case *Load:
		return w.Load(ops[0])
	case *Store:
		return w.Store(ops[0], ops[1])
	case *Enter:
		return w.Enter(ops[0])
	case *Leave:
		return w.Leave(ops[0])
	case *Run:
		return w.RunMarker(ops[0])
	case *Hlt:
		return w.HltMarker(ops[0])
	case *Param, *Literal, *Bottom, *AnyVal, *PrimType, *TypeVar:
		return def // no operands to replace
	default:
		panic(fmt.Sprintf("ir: Update: unhandled kind %T", def))
	}
}

func asTypes(ops []Def) []Type {
	types := make([]Type, len(ops))
	for i, o := range ops {
		types[i] = o.(Type)
	}
	return types
}

// Replace redirects every use of old to new in one sweep, re-canonicalizing
// every transitively affected Def (section 4.1). Because this World keys
// hash-consing on operand generation ids rather than operand content, a
// Continuation's or named sigma's own structural key never needs to change
// when it mutates -- only the *callers* of World.Update that feed it fresh
// operands produce new canonical Defs, and those propagate through this
// worklist. (The C++ original's "rehash" step existed because its hashing
// walked operand pointers' content; here GID stability makes that
// unnecessary -- see cleanup's doc comment.)
func (w *World) Replace(old, new_ Def) {
	if old == new_ {
		return
	}
	type pending struct{ old, new_ Def }
	worklist := []pending{{old, new_}}
	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]
		uses := append([]Use(nil), w.Uses(item.old)...)
		for _, u := range uses {
			oldUser := u.User
			newUser := w.UpdateOps(oldUser, replacedOps(oldUser, u.Index, item.new_))
			if newUser != oldUser {
				worklist = append(worklist, pending{oldUser, newUser})
			}
		}
	}
}

func replacedOps(user Def, index int, with Def) []Def {
	ops := append([]Def(nil), user.Ops()...)
	ops[index] = with
	return ops
}

// DCE marks every Def reachable from an external continuation through
// operand edges, then releases everything unmarked (section 4.8).
func (w *World) DCE() {
	gen := w.NewPass()
	var mark func(d Def)
	mark = func(d Def) {
		if d == nil || w.Visit(d, gen) {
			return
		}
		for _, op := range d.Ops() {
			mark(op)
		}
	}
	for _, c := range w.externals {
		mark(c)
	}
	for gid, d := range w.allDefs {
		if w.passMark[gid] != gen {
			w.releaseDef(d)
		}
	}
}

// UCE marks every continuation reachable from an external continuation
// through jump-callee/jump-argument edges restricted to continuations, then
// releases the rest. Their parameters and dependent primops die with them
// in the next DCE (section 4.8).
func (w *World) UCE() {
	gen := w.NewPass()
	var mark func(c *Continuation)
	mark = func(c *Continuation) {
		if c == nil || w.Visit(c, gen) {
			return
		}
		for _, op := range c.Ops() {
			if next, ok := op.(*Continuation); ok {
				mark(next)
			}
		}
	}
	for _, c := range w.externals {
		mark(c)
	}
	for gid, d := range w.allDefs {
		if c, ok := d.(*Continuation); ok && w.passMark[gid] != gen {
			w.releaseDef(c)
		}
	}
}

// Cleanup performs DCE followed by UCE followed by a final DCE (to collect
// whatever UCE just orphaned), as section 4.8 requires. It is re-entrant:
// every transformation pass in internal/pass calls it between and after
// rewrites.
func (w *World) Cleanup() {
	w.DCE()
	w.UCE()
	w.DCE()
}

func (w *World) releaseDef(d Def) {
	gid := d.GID()
	delete(w.allDefs, gid)
	if !d.Kind().IsNominal() {
		key := makeStructKey(d.Kind(), typeGID(d.Type()), d.Ops(), payloadOf(d))
		if w.structural[key] == d {
			delete(w.structural, key)
		}
	}
	w.unrecordUses(d)
	delete(w.uses, gid)
	if c, ok := d.(*Continuation); ok {
		delete(w.externals, c.GID())
	}
}
