package ir

import (
	"fmt"
	"strings"
)

// Param is the i-th formal parameter of a specific Continuation (section 3).
type Param struct {
	defBase
	Cont  *Continuation
	Index int
}

func (p *Param) String() string {
	if p.name != "" {
		return p.name
	}
	return fmt.Sprintf("%s.%d", p.Cont.GID(), p.Index)
}

// ContFlags are the mutable classification bits a Continuation carries
// alongside its parameter-order-derived classification (section 4.3).
type ContFlags uint8

const (
	FlagNone ContFlags = 0
	// FlagIntrinsic marks a built-in continuation (e.g. branch) that is
	// never rewritten by a transformation pass.
	FlagIntrinsic ContFlags = 1 << iota
	// FlagExternal marks a GC root that survives cleanup.
	FlagExternal
)

// Jump is a continuation's single tail call: callee plus argument list
// (section 3).
type Jump struct {
	Callee Def
	Args   []Def
}

// Continuation (a "Lambda" in the source terminology) is a named, mutable
// basic-block node: an ordered parameter list plus a jump (section 4.3).
// Unlike every other Def it is never hash-consed (section 3 invariant 1,
// section 9): its identity is its GID regardless of how its jump changes.
type Continuation struct {
	defBase
	Params []*Param
	J      Jump
	Flags  ContFlags
}

// Ops returns the jump's callee followed by its arguments -- a
// Continuation's operand edges, used by DCE/placement/scope traversal
// (section 4.1, 4.4, 4.8). Params are not operands: they are *defined* by
// this continuation, not referenced by it.
func (c *Continuation) Ops() []Def {
	if c.J.Callee == nil {
		return nil
	}
	ops := make([]Def, 0, 1+len(c.J.Args))
	ops = append(ops, c.J.Callee)
	ops = append(ops, c.J.Args...)
	return ops
}

func (c *Continuation) Op(i int) Def  { return c.Ops()[i] }
func (c *Continuation) NumOps() int   { return len(c.Ops()) }

// PiType returns the continuation's function type.
func (c *Continuation) PiType() *PiType { return c.typ.(*PiType) }

// Param returns the i-th formal parameter.
func (c *Continuation) Param(i int) *Param { return c.Params[i] }

// NumParams returns the parameter count.
func (c *Continuation) NumParams() int { return len(c.Params) }

// IsBasicBlock reports whether every parameter has order 0 (section 4.3).
func (c *Continuation) IsBasicBlock() bool {
	for _, p := range c.Params {
		if Order(p) != 0 {
			return false
		}
	}
	return true
}

// IsReturning reports whether this continuation has exactly one parameter of
// order 1 (its return continuation) and the rest of order 0 (section 3
// invariant 3, section 4.3).
func (c *Continuation) IsReturning() bool {
	retCount := 0
	for _, p := range c.Params {
		switch Order(p) {
		case 0:
		case 1:
			retCount++
		default:
			return false
		}
	}
	return retCount == 1
}

// ReturnParam returns the distinguished order-1 return parameter, or nil if
// this continuation is not returning.
func (c *Continuation) ReturnParam() *Param {
	if !c.IsReturning() {
		return nil
	}
	for _, p := range c.Params {
		if Order(p) == 1 {
			return p
		}
	}
	return nil
}

func (c *Continuation) IsIntrinsic() bool { return c.Flags&FlagIntrinsic != 0 }
func (c *Continuation) IsExternal() bool  { return c.Flags&FlagExternal != 0 }

// IsEmpty reports whether the continuation has no jump target yet (a
// declared but not yet built continuation, or one whose body was pruned).
func (c *Continuation) IsEmpty() bool { return c.J.Callee == nil }

func (c *Continuation) String() string {
	var b strings.Builder
	if c.name != "" {
		fmt.Fprintf(&b, "%s", c.name)
	} else {
		fmt.Fprintf(&b, "%s", c.gid)
	}
	b.WriteByte('(')
	for i, p := range c.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", dref(p), p.Type())
	}
	b.WriteByte(')')
	if c.IsEmpty() {
		b.WriteString(" = <empty>")
		return b.String()
	}
	b.WriteString(" = ")
	b.WriteString(dref(c.J.Callee))
	b.WriteByte('(')
	for i, a := range c.J.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(dref(a))
	}
	b.WriteByte(')')
	return b.String()
}
