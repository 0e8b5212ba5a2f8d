package ir

// Def is the universal value node (section 3). Every node in the graph --
// type, literal, primop, param, or continuation -- implements Def.
type Def interface {
	// GID returns the process-unique generation id assigned when this Def
	// was inserted into its World.
	GID() GID
	Kind() Kind
	// Type returns the Def's type, or nil for nodes of the type algebra
	// itself (a Type has no further type).
	Type() Type
	// Ops returns the ordered operand list. For a Continuation these are
	// the jump's callee followed by its arguments; for everything else
	// they are the node's data dependencies.
	Ops() []Def
	Op(i int) Def
	NumOps() int
	// Name returns the optional name tag (section 3), or "" if unnamed.
	Name() string
	String() string
}

// Type is a Def from the type algebra (section 4.2).
type Type interface {
	Def
	// Order is the order of the type: 0 for data, pi adds one to the max
	// order of its element types, everything else passes order through
	// unchanged (section 4.2).
	Order() int
}

// Use is one (user, operand-index) pair referencing a Def (section 3
// invariant 5). Use-lists are kept in a World-owned side table, not on the
// Def itself, per the "arena + stable indices" design note in section 9.
type Use struct {
	User  Def
	Index int
}

// defBase is embedded by every concrete node and implements the parts of Def
// common to all kinds. Mutation of these fields is confined to World
// construction/rewriting code in this package.
type defBase struct {
	gid  GID
	kind Kind
	typ  Type
	ops  []Def
	name string
}

// base returns the embedding struct's own defBase, letting World assign gids
// and ops uniformly across concrete kinds without a type switch.
func (d *defBase) base() *defBase { return d }

func (d *defBase) GID() GID    { return d.gid }
func (d *defBase) Kind() Kind  { return d.kind }
func (d *defBase) Type() Type  { return d.typ }
func (d *defBase) Ops() []Def  { return d.ops }
func (d *defBase) Op(i int) Def { return d.ops[i] }
func (d *defBase) NumOps() int { return len(d.ops) }
func (d *defBase) Name() string { return d.name }

// IsPure reports whether a Def's evaluation has no observable side effect
// other than producing its result -- the property placement (section 4.6)
// requires of anything it schedules, and cleanup requires of anything DCE
// may discard.
func IsPure(d Def) bool {
	switch d.Kind() {
	case KindStore, KindEnter, KindLeave, KindContinuation:
		return false
	default:
		return true
	}
}

// Order returns the order of any Def: for a Type, Type.Order(); for a value
// node, the order of its type; types with no Type() (i.e. Types themselves
// handled above) default to 0.
func Order(d Def) int {
	if t, ok := d.(Type); ok {
		return t.Order()
	}
	if t := d.Type(); t != nil {
		return t.Order()
	}
	return 0
}
