package ir

import (
	"fmt"
	"strings"
)

// PrimKind enumerates the primitive types of section 3: boolean, signed and
// unsigned integers of width 8/16/32/64, and floats of width 32/64.
type PrimKind uint8

const (
	Bool PrimKind = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64

	numPrimKinds
)

func (p PrimKind) String() string {
	switch p {
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "?prim"
	}
}

// IsFloat reports whether p is one of the floating-point kinds. allset() is
// disallowed for these (section 6).
func (p PrimKind) IsFloat() bool { return p == F32 || p == F64 }

// IsSigned reports whether p is a signed integer kind.
func (p PrimKind) IsSigned() bool {
	switch p {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// IsInt reports whether p is any integer kind (signed or unsigned).
func (p PrimKind) IsInt() bool {
	switch p {
	case I8, I16, I32, I64, U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// BitWidth returns the width in bits of an integer or float primitive; Bool
// is treated as width 1.
func (p PrimKind) BitWidth() int {
	switch p {
	case Bool:
		return 1
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	default:
		return 0
	}
}

// PrimType is a primitive type node (structural, hash-consed).
type PrimType struct {
	defBase
	Prim PrimKind
}

func (t *PrimType) Order() int      { return 0 }
func (t *PrimType) String() string  { return t.Prim.String() }

// SigmaType is a tuple type. Unnamed sigmas are structural (hash-consed);
// named sigmas are nominal (never unified, even if structurally identical --
// section 3 invariant 1) which lets them express recursive types.
type SigmaType struct {
	defBase
	Named bool
}

func (t *SigmaType) Order() int {
	max := 0
	for _, op := range t.ops {
		if o := op.(Type).Order(); o > max {
			max = o
		}
	}
	return max
}

// Elem returns the i-th element type.
func (t *SigmaType) Elem(i int) Type { return t.ops[i].(Type) }

// NumElems returns the element count.
func (t *SigmaType) NumElems() int { return len(t.ops) }

// SetElems replaces the element list of a named sigma (the only structural
// mutation besides a Continuation's jump -- section 3 "Lifecycle"). It is a
// logic error to call this on an unnamed (hash-consed) sigma.
func (t *SigmaType) SetElems(elems []Type) {
	if !t.Named {
		panic("ir: cannot mutate an unnamed (structural) sigma")
	}
	ops := make([]Def, len(elems))
	for i, e := range elems {
		ops[i] = e
	}
	t.ops = ops
}

func (t *SigmaType) String() string {
	var b strings.Builder
	if t.Named {
		if t.name != "" {
			return t.name
		}
		fmt.Fprintf(&b, "struct%s", t.gid)
		return b.String()
	}
	b.WriteByte('[')
	for i, op := range t.ops {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(op.String())
	}
	b.WriteByte(']')
	return b.String()
}

// PiType is a function type: an ordered list of parameter types. Order adds
// one to the max order of its elements (section 4.2) -- a plain basic block
// pi (all order-0 elements) has order 1, matching a returning continuation's
// single order-1 return parameter (section 3 invariant 3).
type PiType struct {
	defBase
}

func (t *PiType) Order() int {
	max := 0
	for _, op := range t.ops {
		if o := op.(Type).Order(); o > max {
			max = o
		}
	}
	return max + 1
}

func (t *PiType) Elem(i int) Type   { return t.ops[i].(Type) }
func (t *PiType) NumElems() int     { return len(t.ops) }

func (t *PiType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, op := range t.ops {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(op.String())
	}
	b.WriteString(") -> !")
	return b.String()
}

// PtrType is a pointer type: element type, element count (-1 for a scalar
// pointer, >=1 for a fixed-size array), address space and device id
// (section 3).
type PtrType struct {
	defBase
	AddrSpace int
	Device    int
	Count     int64
}

func (t *PtrType) Order() int { return 0 }
func (t *PtrType) Elem() Type { return t.ops[0].(Type) }

func (t *PtrType) String() string {
	if t.Count >= 1 {
		return fmt.Sprintf("*[%d x %s]@%d:%d", t.Count, t.Elem(), t.AddrSpace, t.Device)
	}
	return fmt.Sprintf("*%s@%d:%d", t.Elem(), t.AddrSpace, t.Device)
}

// TypeVar is a binder-bound generic placeholder (section 3). BinderGID names
// the Pi this variable was minted for; Index is its position among that
// Pi's fresh variables. Type variables are nominal: two TypeVars are never
// structurally unified, they unify by binder identity only (invariant 1).
type TypeVar struct {
	defBase
	BinderGID GID
	Index     int
}

func (t *TypeVar) Order() int     { return 0 }
func (t *TypeVar) String() string { return fmt.Sprintf("$%d.%d", t.BinderGID, t.Index) }

// Instantiate substitutes every TypeVar reachable from t through the
// {BinderGID,Index} -> Type map `subst`, returning the resulting type built
// in w. Types with no matching variable are returned unchanged (they are
// already canonical, so no rebuild is needed).
func Instantiate(w *World, t Type, subst map[TypeVarKey]Type) Type {
	switch v := t.(type) {
	case *TypeVar:
		if repl, ok := subst[TypeVarKey{v.BinderGID, v.Index}]; ok {
			return repl
		}
		return v
	case *PrimType:
		return v
	case *PtrType:
		elem := Instantiate(w, v.Elem(), subst)
		return w.Ptr(elem, v.Count, v.AddrSpace, v.Device)
	case *SigmaType:
		if v.Named {
			return v // named sigmas are nominal; instantiation does not rebuild them
		}
		elems := make([]Type, v.NumElems())
		changed := false
		for i := 0; i < v.NumElems(); i++ {
			elems[i] = Instantiate(w, v.Elem(i), subst)
			if elems[i] != v.Elem(i) {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return w.Sigma(elems...)
	case *PiType:
		elems := make([]Type, v.NumElems())
		changed := false
		for i := 0; i < v.NumElems(); i++ {
			elems[i] = Instantiate(w, v.Elem(i), subst)
			if elems[i] != v.Elem(i) {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return w.Pi(elems...)
	default:
		return v
	}
}

// TypeVarKey identifies a bound type variable for substitution maps.
type TypeVarKey struct {
	BinderGID GID
	Index     int
}

// Specialize mints a fresh TypeVar for every distinct variable bound under
// binder (identified by binderGID, with count variables) and instantiates t
// through that fresh map -- "specialize first maps every bound variable to a
// freshly-minted variable, then instantiates" (section 4.2).
func Specialize(w *World, t Type, binderGID GID, count int) Type {
	subst := make(map[TypeVarKey]Type, count)
	for i := 0; i < count; i++ {
		fresh := w.freshTypeVar()
		subst[TypeVarKey{binderGID, i}] = fresh
	}
	return Instantiate(w, t, subst)
}

// Unify attempts to bind the TypeVars appearing in generic against the
// structurally corresponding positions of concrete, recording bindings into
// out. Used by lower2cff/drop to recover the actual type arguments of a
// generic callee at a call site (section 4.7.1). Returns false if generic
// and concrete have incompatible shapes.
func Unify(generic, concrete Type, out map[TypeVarKey]Type) bool {
	if v, ok := generic.(*TypeVar); ok {
		key := TypeVarKey{v.BinderGID, v.Index}
		if existing, bound := out[key]; bound {
			return existing == concrete
		}
		out[key] = concrete
		return true
	}
	if generic.Kind() != concrete.Kind() {
		return false
	}
	switch g := generic.(type) {
	case *PrimType:
		return g.Prim == concrete.(*PrimType).Prim
	case *PtrType:
		c := concrete.(*PtrType)
		return g.AddrSpace == c.AddrSpace && g.Device == c.Device && g.Count == c.Count &&
			Unify(g.Elem(), c.Elem(), out)
	case *SigmaType:
		c := concrete.(*SigmaType)
		if g.Named || c.Named {
			return generic == concrete
		}
		if g.NumElems() != c.NumElems() {
			return false
		}
		for i := 0; i < g.NumElems(); i++ {
			if !Unify(g.Elem(i), c.Elem(i), out) {
				return false
			}
		}
		return true
	case *PiType:
		c := concrete.(*PiType)
		if g.NumElems() != c.NumElems() {
			return false
		}
		for i := 0; i < g.NumElems(); i++ {
			if !Unify(g.Elem(i), c.Elem(i), out) {
				return false
			}
		}
		return true
	default:
		return generic == concrete
	}
}

// IsGeneric reports whether t transitively contains a TypeVar.
func IsGeneric(t Type) bool {
	switch v := t.(type) {
	case *TypeVar:
		return true
	case *PtrType:
		return IsGeneric(v.Elem())
	case *SigmaType:
		if v.Named {
			return false
		}
		for i := 0; i < v.NumElems(); i++ {
			if IsGeneric(v.Elem(i)) {
				return true
			}
		}
		return false
	case *PiType:
		for i := 0; i < v.NumElems(); i++ {
			if IsGeneric(v.Elem(i)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
