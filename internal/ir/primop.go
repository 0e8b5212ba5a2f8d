package ir

import "fmt"

// ArithKind enumerates the arithmetic primop family.
type ArithKind uint8

const (
	Add ArithKind = iota
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Shl
	Shr
)

func (k ArithKind) String() string {
	return [...]string{"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr"}[k]
}

// IsCommutative reports whether operand order does not affect the result --
// used by World.consume's canonical re-ordering (section 4.1).
func (k ArithKind) IsCommutative() bool {
	switch k {
	case Add, Mul, And, Or, Xor:
		return true
	default:
		return false
	}
}

// RelKind enumerates the relational primop family.
type RelKind uint8

const (
	Eq RelKind = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

func (k RelKind) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[k]
}

// Negated returns the relation that holds exactly when k does not.
func (k RelKind) Negated() RelKind {
	return [...]RelKind{Ne, Eq, Ge, Gt, Le, Lt}[k]
}

// ConvKind enumerates the conversion primop family.
type ConvKind uint8

const (
	Trunc ConvKind = iota
	Zext
	Sext
	Fptrunc
	Fpext
	Fptoui
	Fptosi
	Uitofp
	Sitofp
	Bitcast
)

func (k ConvKind) String() string {
	return [...]string{"trunc", "zext", "sext", "fptrunc", "fpext", "fptoui", "fptosi", "uitofp", "sitofp", "bitcast"}[k]
}

// ArithOp is a binary arithmetic primop: ops = [lhs, rhs].
type ArithOp struct {
	defBase
	OpKind ArithKind
}

func (p *ArithOp) Lhs() Def { return p.ops[0] }
func (p *ArithOp) Rhs() Def { return p.ops[1] }
func (p *ArithOp) String() string {
	return fmt.Sprintf("%s %s %s", p.OpKind, dref(p.Lhs()), dref(p.Rhs()))
}

// RelOp is a binary relational primop: ops = [lhs, rhs], Type() is always bool.
type RelOp struct {
	defBase
	OpKind RelKind
}

func (p *RelOp) Lhs() Def { return p.ops[0] }
func (p *RelOp) Rhs() Def { return p.ops[1] }
func (p *RelOp) String() string {
	return fmt.Sprintf("%s %s %s", p.OpKind, dref(p.Lhs()), dref(p.Rhs()))
}

// ConvOp is a unary conversion primop: ops = [from].
type ConvOp struct {
	defBase
	OpKind ConvKind
}

func (p *ConvOp) From() Def { return p.ops[0] }
func (p *ConvOp) String() string {
	return fmt.Sprintf("%s %s to %s", p.OpKind, dref(p.From()), p.typ)
}

// Tuple constructs an aggregate from its operands.
type Tuple struct{ defBase }

func (p *Tuple) String() string {
	s := "("
	for i, op := range p.ops {
		if i > 0 {
			s += ", "
		}
		s += dref(op)
	}
	return s + ")"
}

// Extract projects element Index out of a tuple: ops = [tuple].
type Extract struct {
	defBase
	Index int
}

func (p *Extract) Tuple() Def { return p.ops[0] }
func (p *Extract) String() string {
	return fmt.Sprintf("extract %s, %d", dref(p.Tuple()), p.Index)
}

// Insert produces a new tuple with element Index replaced: ops = [tuple, value].
type Insert struct {
	defBase
	Index int
}

func (p *Insert) Tuple() Def { return p.ops[0] }
func (p *Insert) Value() Def { return p.ops[1] }
func (p *Insert) String() string {
	return fmt.Sprintf("insert %s, %d, %s", dref(p.Tuple()), p.Index, dref(p.Value()))
}

// Select picks between two values by a boolean condition: ops = [cond, t, f].
type Select struct{ defBase }

func (p *Select) Cond() Def { return p.ops[0] }
func (p *Select) TVal() Def { return p.ops[1] }
func (p *Select) FVal() Def { return p.ops[2] }
func (p *Select) String() string {
	return fmt.Sprintf("select %s, %s, %s", dref(p.Cond()), dref(p.TVal()), dref(p.FVal()))
}

// Slot allocates a stack slot inside a frame: ops = [frame]. Type() is a
// PtrType to the slot's element type. Placement pins Slot to its frame's
// entry continuation (section 4.6).
type Slot struct{ defBase }

func (p *Slot) Frame() Def { return p.ops[0] }
func (p *Slot) String() string {
	return fmt.Sprintf("slot %s, %s", p.typ.(*PtrType).Elem(), dref(p.Frame()))
}

// Load reads through a pointer: ops = [ptr]. Type() is the pointee type.
type Load struct{ defBase }

func (p *Load) Ptr() Def { return p.ops[0] }
func (p *Load) String() string { return fmt.Sprintf("load %s", dref(p.Ptr())) }

// Store writes a value through a pointer: ops = [ptr, value]. Has no result
// (Type() is the unit sigma).
type Store struct{ defBase }

func (p *Store) Ptr() Def   { return p.ops[0] }
func (p *Store) Value() Def { return p.ops[1] }
func (p *Store) String() string {
	return fmt.Sprintf("store %s, %s", dref(p.Ptr()), dref(p.Value()))
}

// Enter opens a new stack frame: ops = [outer-frame]. Pinned to the entry of
// its owning continuation during placement.
type Enter struct{ defBase }

func (p *Enter) Outer() Def    { return p.ops[0] }
func (p *Enter) String() string { return fmt.Sprintf("enter %s", dref(p.Outer())) }

// Leave closes a stack frame: ops = [frame]. Pinned late during placement.
type Leave struct{ defBase }

func (p *Leave) Frame() Def    { return p.ops[0] }
func (p *Leave) String() string { return fmt.Sprintf("leave %s", dref(p.Frame())) }

// Run marks a call as eligible for eager partial-evaluation specialization:
// ops = [def] (section 4.7.2).
type Run struct{ defBase }

func (p *Run) Def_() Def     { return p.ops[0] }
func (p *Run) String() string { return fmt.Sprintf("run %s", dref(p.Def_())) }

// Hlt marks a value as a specialization boundary -- partial evaluation
// treats it as unknown and stops there (section 4.7.2): ops = [def].
type Hlt struct{ defBase }

func (p *Hlt) Def_() Def     { return p.ops[0] }
func (p *Hlt) String() string { return fmt.Sprintf("hlt %s", dref(p.Def_())) }

// dref renders an operand as a short reference: its name if it has one,
// otherwise its generation id. Avoids recursively expanding an operand's own
// subexpression when printing one node's line.
func dref(d Def) string {
	if d == nil {
		return "<nil>"
	}
	if n := d.Name(); n != "" {
		return n
	}
	if lit, ok := d.(*Literal); ok {
		return lit.String()
	}
	return d.GID().String()
}
