package ir

import (
	"fmt"
	"math"
)

// LitValue is the payload of a Literal. Only the field matching the
// Literal's PrimType kind is meaningful; Bits stores the raw bit pattern for
// both integer and float literals so that equality/hashing is a plain
// integer compare regardless of signedness.
type LitValue struct {
	Bits uint64
}

func litBits(prim PrimKind, v interface{}) uint64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int64:
		return uint64(x)
	case uint64:
		return x
	case int:
		return uint64(int64(x))
	case float32:
		if prim == F32 {
			return uint64(math.Float32bits(x))
		}
		return math.Float64bits(float64(x))
	case float64:
		if prim == F32 {
			return uint64(math.Float32bits(float32(x)))
		}
		return math.Float64bits(x)
	default:
		panic(fmt.Sprintf("ir: unsupported literal value %T for %s", v, prim))
	}
}

// Literal is a typed compile-time constant (section 3).
type Literal struct {
	defBase
	Val LitValue
}

// AsBool decodes a bool literal.
func (l *Literal) AsBool() bool { return l.Val.Bits != 0 }

// AsInt decodes an integer literal as its bit pattern, reinterpreted signed
// if the type is signed.
func (l *Literal) AsInt() int64 {
	if pt := l.typ.(*PrimType); pt.Prim.IsSigned() {
		return signExtend(int64(l.Val.Bits), pt.Prim.BitWidth())
	}
	return int64(l.Val.Bits)
}

// AsUint decodes an integer literal as an unsigned bit pattern.
func (l *Literal) AsUint() uint64 { return l.Val.Bits }

// AsFloat decodes a float literal of the matching width.
func (l *Literal) AsFloat() float64 {
	pt := l.typ.(*PrimType)
	if pt.Prim == F32 {
		return float64(math.Float32frombits(uint32(l.Val.Bits)))
	}
	return math.Float64frombits(l.Val.Bits)
}

func (l *Literal) String() string {
	pt := l.typ.(*PrimType)
	switch {
	case pt.Prim == Bool:
		return fmt.Sprintf("%v", l.AsBool())
	case pt.Prim.IsFloat():
		return fmt.Sprintf("%g:%s", l.AsFloat(), pt)
	case pt.Prim.IsSigned():
		return fmt.Sprintf("%d:%s", l.AsInt(), pt)
	default:
		return fmt.Sprintf("%d:%s", l.AsUint(), pt)
	}
}

// Bottom is the undefined value of a type (section 3).
type Bottom struct{ defBase }

func (b *Bottom) String() string { return fmt.Sprintf("⊥:%s", b.typ) }

// AnyVal is the arbitrary value of a type -- a join/havoc, distinct from
// Bottom (section 9 design notes, Open Questions).
type AnyVal struct{ defBase }

func (a *AnyVal) String() string { return fmt.Sprintf("any:%s", a.typ) }
