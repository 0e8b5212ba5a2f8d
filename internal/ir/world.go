package ir

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"kanso/internal/diag"
)

// World owns every Def and is the single construction and rewriting hub
// (section 4.1). Worlds are independent: no cross-world references exist,
// and a World is not safe for concurrent mutation (section 5) -- an
// implementer may run distinct Worlds on distinct goroutines, one World per
// goroutine, for parallel compilation.
type World struct {
	id   string
	Diag *diag.Sink

	nextGID    GID
	structural map[structKey]Def
	allDefs    map[GID]Def
	uses       map[GID][]Use

	primTypes [numPrimKinds]*PrimType
	sigma0    *SigmaType
	pi0       *PiType

	externals       map[GID]*Continuation
	branchIntrinsic *Continuation

	passGen  uint64
	passMark map[GID]uint64
	tvarSeq  int
}

// NewWorld creates an empty World, pre-populated with the primitive types,
// the unit sigma, and the nullary pi.
func NewWorld() *World {
	w := &World{
		id:         ksuid.New().String(),
		Diag:       diag.NewSink(),
		structural: make(map[structKey]Def),
		allDefs:    make(map[GID]Def),
		uses:       make(map[GID][]Use),
		externals:  make(map[GID]*Continuation),
		passMark:   make(map[GID]uint64),
	}
	for k := PrimKind(0); k < numPrimKinds; k++ {
		pt := &PrimType{defBase: defBase{kind: KindPrimType}, Prim: k}
		w.primTypes[k] = w.insertStructural(pt, makeStructKey(KindPrimType, invalidGID, nil, payloadOf(pt))).(*PrimType)
	}
	w.sigma0 = w.Sigma().(*SigmaType)
	w.pi0 = w.Pi().(*PiType)
	w.branchIntrinsic = w.makeBranchIntrinsic()
	return w
}

// ID returns the ksuid tag identifying this World in trace output -- useful
// to correlate logs when several Worlds run in parallel (section 5).
func (w *World) ID() string { return w.id }

func (w *World) freshGID() GID {
	w.nextGID++
	return w.nextGID
}

// ---- type constructors --------------------------------------------------

// TypeBool, TypeI8, ... return the unique primitive type for that kind.
func (w *World) TypeBool() *PrimType { return w.primTypes[Bool] }
func (w *World) TypeI8() *PrimType   { return w.primTypes[I8] }
func (w *World) TypeI16() *PrimType  { return w.primTypes[I16] }
func (w *World) TypeI32() *PrimType  { return w.primTypes[I32] }
func (w *World) TypeI64() *PrimType  { return w.primTypes[I64] }
func (w *World) TypeU8() *PrimType   { return w.primTypes[U8] }
func (w *World) TypeU16() *PrimType  { return w.primTypes[U16] }
func (w *World) TypeU32() *PrimType  { return w.primTypes[U32] }
func (w *World) TypeU64() *PrimType  { return w.primTypes[U64] }
func (w *World) TypeF32() *PrimType  { return w.primTypes[F32] }
func (w *World) TypeF64() *PrimType  { return w.primTypes[F64] }

// PrimT returns the unique primitive type for an arbitrary PrimKind.
func (w *World) PrimT(k PrimKind) *PrimType { return w.primTypes[k] }

// Sigma returns the hash-consed unnamed tuple type over elems.
func (w *World) Sigma(elems ...Type) Type {
	ops := make([]Def, len(elems))
	for i, e := range elems {
		ops[i] = e
	}
	st := &SigmaType{defBase: defBase{kind: KindSigma, ops: ops}}
	return w.consume(st).(*SigmaType)
}

// Unit returns the unit (empty unnamed sigma) type.
func (w *World) Unit() *SigmaType { return w.sigma0 }

// NamedSigma creates a fresh, never-unified named tuple type with `arity`
// elements initialized to Bottom's type placeholder (Unit) until SetElems is
// called -- this is how recursive types are expressed (section 3 invariant
// 1, section 4.2).
func (w *World) NamedSigma(arity int, name string) *SigmaType {
	elems := make([]Def, arity)
	for i := range elems {
		elems[i] = w.sigma0
	}
	st := &SigmaType{
		defBase: defBase{kind: KindNamedSigma, ops: elems, name: name, gid: w.freshGID()},
		Named:   true,
	}
	w.allDefs[st.gid] = st
	w.recordUses(st)
	return st
}

// SetNamedSigmaElems mutates a named sigma's element list in place -- the
// other structural mutation alongside a Continuation's jump (section 3
// "Lifecycle"). Use-list bookkeeping is updated to match.
func (w *World) SetNamedSigmaElems(st *SigmaType, elems []Type) {
	w.unrecordUses(st)
	st.SetElems(elems)
	w.recordUses(st)
}

// Pi returns the hash-consed function type over elems.
func (w *World) Pi(elems ...Type) Type {
	ops := make([]Def, len(elems))
	for i, e := range elems {
		ops[i] = e
	}
	pt := &PiType{defBase: defBase{kind: KindPi, ops: ops}}
	return w.consume(pt).(*PiType)
}

// Ptr returns the hash-consed pointer type to elem. count == -1 means a
// scalar pointer; count >= 1 means a fixed-size array pointer.
func (w *World) Ptr(elem Type, count int64, addrSpace, device int) Type {
	pt := &PtrType{
		defBase:   defBase{kind: KindPtr, ops: []Def{elem}},
		AddrSpace: addrSpace,
		Device:    device,
		Count:     count,
	}
	return w.consume(pt).(*PtrType)
}

// freshTypeVar mints a new nominal type variable (section 4.2, Specialize).
func (w *World) freshTypeVar() *TypeVar {
	w.tvarSeq++
	tv := &TypeVar{
		defBase:   defBase{kind: KindTypeVar, gid: w.freshGID()},
		BinderGID: invalidGID,
		Index:     w.tvarSeq,
	}
	w.allDefs[tv.gid] = tv
	return tv
}

// TypeVarFor mints a type variable bound by binderGID at position index --
// used when declaring a generic continuation's pi type.
func (w *World) TypeVarFor(binderGID GID, index int) *TypeVar {
	tv := &TypeVar{
		defBase:   defBase{kind: KindTypeVar, gid: w.freshGID()},
		BinderGID: binderGID,
		Index:     index,
	}
	w.allDefs[tv.gid] = tv
	return tv
}

// ---- literal constructors ------------------------------------------------

// Lit builds a typed literal constant of primitive kind k.
func (w *World) Lit(k PrimKind, v interface{}) *Literal {
	lit := &Literal{
		defBase: defBase{kind: KindLiteral, typ: w.primTypes[k]},
		Val:     LitValue{Bits: litBits(k, v)},
	}
	return w.consume(lit).(*Literal)
}

// Zero returns the zero literal of primitive kind k.
func (w *World) Zero(k PrimKind) *Literal { return w.Lit(k, uint64(0)) }

// One returns the one literal of primitive kind k.
func (w *World) One(k PrimKind) *Literal {
	if k.IsFloat() {
		return w.Lit(k, float64(1))
	}
	return w.Lit(k, uint64(1))
}

// AllSet returns the all-ones-bits literal of primitive kind k. Disallowed
// for float kinds (section 6).
func (w *World) AllSet(k PrimKind) *Literal {
	if k.IsFloat() {
		panic("ir: allset is not defined for float kinds")
	}
	mask := uint64(1)<<uint(k.BitWidth()) - 1
	if k.BitWidth() >= 64 {
		mask = ^uint64(0)
	}
	return w.Lit(k, mask)
}

// Bottom returns the undefined value of type t.
func (w *World) Bottom(t Type) *Bottom {
	b := &Bottom{defBase: defBase{kind: KindBottom, typ: t}}
	return w.consume(b).(*Bottom)
}

// Any returns the arbitrary value of type t.
func (w *World) Any(t Type) *AnyVal {
	a := &AnyVal{defBase: defBase{kind: KindAny, typ: t}}
	return w.consume(a).(*AnyVal)
}

// ---- primop constructors -------------------------------------------------

// ArithOp builds (or folds/canonicalizes) an arithmetic primop.
func (w *World) ArithOp(op ArithKind, lhs, rhs Def) Def {
	if folded := foldArith(w, op, lhs, rhs); folded != nil {
		return folded
	}
	lhs, rhs = canonicalizeCommutative(op.IsCommutative(), lhs, rhs)
	a := &ArithOp{defBase: defBase{kind: KindArithOp, typ: lhs.Type(), ops: []Def{lhs, rhs}}, OpKind: op}
	return w.consume(a)
}

// RelOp builds (or folds/canonicalizes) a relational primop.
func (w *World) RelOp(op RelKind, lhs, rhs Def) Def {
	if folded := foldRel(w, op, lhs, rhs); folded != nil {
		return folded
	}
	r := &RelOp{defBase: defBase{kind: KindRelOp, typ: w.TypeBool(), ops: []Def{lhs, rhs}}, OpKind: op}
	return w.consume(r)
}

// ConvOp builds (or folds) a conversion primop.
func (w *World) ConvOp(op ConvKind, from Def, to Type) Def {
	if folded := foldConv(w, op, from, to); folded != nil {
		return folded
	}
	c := &ConvOp{defBase: defBase{kind: KindConvOp, typ: to, ops: []Def{from}}, OpKind: op}
	return w.consume(c)
}

// Tuple builds (or reuses) a tuple of the given elements.
func (w *World) Tuple(elems ...Def) Def {
	types := make([]Type, len(elems))
	for i, e := range elems {
		types[i] = e.Type()
	}
	t := &Tuple{defBase: defBase{kind: KindTuple, typ: w.Sigma(types...), ops: append([]Def(nil), elems...)}}
	return w.consume(t)
}

// Extract projects element i out of a tuple, folding extract-of-insert and
// extract-of-tuple-literal (section 4.1).
func (w *World) Extract(tuple Def, i int) Def {
	if folded := foldExtract(tuple, i); folded != nil {
		return folded
	}
	st := tuple.Type().(*SigmaType)
	e := &Extract{defBase: defBase{kind: KindExtract, typ: st.Elem(i), ops: []Def{tuple}}, Index: i}
	return w.consume(e)
}

// Insert produces a new tuple with element i replaced by value.
func (w *World) Insert(tuple Def, i int, value Def) Def {
	ins := &Insert{defBase: defBase{kind: KindInsert, typ: tuple.Type(), ops: []Def{tuple, value}}, Index: i}
	return w.consume(ins)
}

// Select picks tdef or fdef by cond, folding a constant or a dead (tdef ==
// fdef) select (section 4.1).
func (w *World) Select(cond, tdef, fdef Def) Def {
	if folded := foldSelect(cond, tdef, fdef); folded != nil {
		return folded
	}
	s := &Select{defBase: defBase{kind: KindSelect, typ: tdef.Type(), ops: []Def{cond, tdef, fdef}}}
	return w.consume(s)
}

// AllocSlot allocates a stack slot of type elem inside frame.
func (w *World) AllocSlot(elem Type, frame Def) Def {
	ptr := w.Ptr(elem, -1, 0, 0)
	s := &Slot{defBase: defBase{kind: KindSlot, typ: ptr, ops: []Def{frame}}}
	return w.consume(s)
}

// Load reads the pointee of ptr.
func (w *World) Load(ptr Def) Def {
	elem := ptr.Type().(*PtrType).Elem()
	l := &Load{defBase: defBase{kind: KindLoad, typ: elem, ops: []Def{ptr}}}
	return w.consume(l)
}

// Store writes value through ptr. Stores are impure (IsPure returns false)
// and are never subject to CSE: Store bypasses World.consume and assigns the
// node a fresh GID itself so it can be scheduled and tracked, and two Store
// nodes are never shared.
func (w *World) Store(ptr, value Def) Def {
	st := &Store{defBase: defBase{kind: KindStore, typ: w.sigma0, ops: []Def{ptr, value}}}
	st.gid = w.freshGID()
	w.allDefs[st.gid] = st
	w.recordUses(st)
	return st
}

// Enter opens a new stack frame nested in outer.
func (w *World) Enter(outer Def) Def {
	e := &Enter{defBase: defBase{kind: KindEnter, typ: w.sigma0, ops: []Def{outer}}}
	e.gid = w.freshGID()
	w.allDefs[e.gid] = e
	w.recordUses(e)
	return e
}

// Leave closes frame.
func (w *World) Leave(frame Def) Def {
	l := &Leave{defBase: defBase{kind: KindLeave, typ: w.sigma0, ops: []Def{frame}}}
	l.gid = w.freshGID()
	w.allDefs[l.gid] = l
	w.recordUses(l)
	return l
}

// RunMarker wraps def as an eager partial-evaluation specialization hint.
func (w *World) RunMarker(def Def) Def {
	r := &Run{defBase: defBase{kind: KindRun, typ: def.Type(), ops: []Def{def}}}
	return w.consume(r)
}

// HltMarker wraps def as a partial-evaluation boundary: its value is treated
// as unknown past this point.
func (w *World) HltMarker(def Def) Def {
	h := &Hlt{defBase: defBase{kind: KindHlt, typ: def.Type(), ops: []Def{def}}}
	return w.consume(h)
}

// ---- continuations --------------------------------------------------------

// Continuation creates a fresh continuation (a "Lambda") of type pi, with
// one Param per pi element already attached. Continuations are nominal:
// never hash-consed, stable GID for their lifetime (section 4.3).
func (w *World) Continuation(pi *PiType, flags ContFlags, name string) *Continuation {
	c := &Continuation{
		defBase: defBase{kind: KindContinuation, typ: pi, name: name, gid: w.freshGID()},
		Flags:   flags,
	}
	c.Params = make([]*Param, pi.NumElems())
	for i := 0; i < pi.NumElems(); i++ {
		p := &Param{
			defBase: defBase{kind: KindParam, typ: pi.Elem(i), gid: w.freshGID()},
			Cont:    c,
			Index:   i,
		}
		w.allDefs[p.gid] = p
		c.Params[i] = p
	}
	w.allDefs[c.gid] = c
	return c
}

// SetJump sets from's tail call to (to, args...), the only mutation besides
// named-sigma element assignment (section 3 "Lifecycle"). It is a contract
// violation to jump with an argument count that does not match to's pi
// arity.
func (w *World) SetJump(from *Continuation, to Def, args []Def) {
	if pi, ok := to.Type().(*PiType); ok {
		if pi.NumElems() != len(args) {
			panic(w.Diag.ContractViolation(from.GID().String(),
				"jump argument count %d does not match callee arity %d", len(args), pi.NumElems()))
		}
	}
	w.unrecordUses(from)
	from.J = Jump{Callee: to, Args: append([]Def(nil), args...)}
	w.recordUses(from)
}

// JumpTo is sugar for SetJump with no arguments.
func (w *World) JumpTo(from *Continuation, to Def) { w.SetJump(from, to, nil) }

func (w *World) makeBranchIntrinsic() *Continuation {
	boolT := w.TypeBool()
	unitPi := w.pi0
	pi := w.Pi(boolT, unitPi, unitPi).(*PiType)
	c := w.Continuation(pi, FlagIntrinsic|FlagExternal, "branch")
	w.externals[c.GID()] = c
	return c
}

// Branch is the intrinsic continuation `branch(cond: bool, t: () -> !, f: () -> !)`
// used as the callee of a two-way conditional jump (section 6).
func (w *World) Branch() *Continuation { return w.branchIntrinsic }

// BranchJump sets from's jump to a conditional branch to tto or fto
// depending on cond.
func (w *World) BranchJump(from *Continuation, cond Def, tto, fto Def) {
	if lit, ok := cond.(*Literal); ok {
		if lit.AsBool() {
			w.JumpTo(from, tto)
		} else {
			w.JumpTo(from, fto)
		}
		return
	}
	w.SetJump(from, w.branchIntrinsic, []Def{cond, tto, fto})
}

// AppendParam extends c's parameter list and pi type with one new parameter
// of type t, used by mem2reg's phixy insertion (section 4.7.3) to grow a
// continuation's arity after construction. It does not patch any existing
// caller's jump -- the caller of AppendParam is responsible for wiring the
// extra trailing argument into every jump that targets c.
func (w *World) AppendParam(c *Continuation, t Type) *Param {
	oldPi := c.PiType()
	types := make([]Type, oldPi.NumElems()+1)
	for i := 0; i < oldPi.NumElems(); i++ {
		types[i] = oldPi.Elem(i)
	}
	types[len(types)-1] = t
	newPi := w.Pi(types...).(*PiType)
	p := &Param{
		defBase: defBase{kind: KindParam, typ: t, gid: w.freshGID()},
		Cont:    c,
		Index:   len(c.Params),
	}
	w.allDefs[p.gid] = p
	c.Params = append(c.Params, p)
	c.typ = newPi
	return p
}

// SetParams replaces c's entire parameter list and pi type at once, used by
// copy_prop to drop a parameter that every caller supplies identically
// (section 9's Open Question resolution). Callers must have already
// redirected every reference to a removed parameter (via Replace) and must
// patch every jump into c to match the new arity.
func (w *World) SetParams(c *Continuation, params []*Param, pi *PiType) {
	c.Params = params
	c.typ = pi
}

// MarkExternal marks c as a GC root surviving cleanup.
func (w *World) MarkExternal(c *Continuation) {
	c.Flags |= FlagExternal
	w.externals[c.GID()] = c
}

// Externals returns every external continuation.
func (w *World) Externals() []*Continuation {
	out := make([]*Continuation, 0, len(w.externals))
	for _, c := range w.externals {
		out = append(out, c)
	}
	return out
}

// ---- hash-consing core ---------------------------------------------------

// consume hash-conses def: canonicalizes, looks it up, and either discards
// it in favor of an existing equal Def or inserts and returns it (section
// 4.1). Nominal kinds bypass the structural table entirely.
func (w *World) consume(def Def) Def {
	if def.Kind().IsNominal() {
		panic("ir: consume must not be called on a nominal kind; construct it directly")
	}
	key := makeStructKey(def.Kind(), typeGID(def.Type()), def.Ops(), payloadOf(def))
	if existing, ok := w.structural[key]; ok {
		return existing
	}
	return w.insertStructural(def, key)
}

func (w *World) insertStructural(def Def, key structKey) Def {
	base := defBaseOf(def)
	base.gid = w.freshGID()
	w.structural[key] = def
	w.allDefs[base.gid] = def
	w.recordUses(def)
	return def
}

// defBaseOf returns the *defBase embedded in any concrete Def so World can
// assign its gid uniformly without a kind-by-kind switch.
func defBaseOf(d Def) *defBase {
	type baser interface{ base() *defBase }
	if b, ok := d.(baser); ok {
		return b.base()
	}
	panic(fmt.Sprintf("ir: %T does not expose its defBase", d))
}

func (w *World) recordUses(d Def) {
	for i, op := range d.Ops() {
		if op == nil {
			continue
		}
		w.uses[op.GID()] = append(w.uses[op.GID()], Use{User: d, Index: i})
	}
}

func (w *World) unrecordUses(d Def) {
	for _, op := range d.Ops() {
		if op == nil {
			continue
		}
		list := w.uses[op.GID()]
		for i, u := range list {
			if u.User == d {
				w.uses[op.GID()] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Uses returns the use-set of d: every (user, operand-index) pair
// referencing it (section 3 invariant 5).
func (w *World) Uses(d Def) []Use { return w.uses[d.GID()] }

// Defs returns every Def currently owned by the World.
func (w *World) Defs() map[GID]Def { return w.allDefs }

// NewPass returns a fresh monotonically increasing pass generation, used by
// analyses (placement, dce/uce) to mark visited Defs in O(1) without having
// to clear a map between runs (section 9 design notes; grounded on
// World::new_pass in the original sources' pass infrastructure).
func (w *World) NewPass() uint64 {
	w.passGen++
	return w.passGen
}

// Visit marks d as seen under pass generation gen, returning whether it was
// already marked this generation.
func (w *World) Visit(d Def, gen uint64) (alreadyVisited bool) {
	if w.passMark[d.GID()] == gen {
		return true
	}
	w.passMark[d.GID()] = gen
	return false
}

// Marked reports whether d carries pass generation gen's mark, without
// mutating it (unlike Visit). Used by analyses that run after a marking
// pass to query liveness.
func (w *World) Marked(d Def, gen uint64) bool { return w.passMark[d.GID()] == gen }
