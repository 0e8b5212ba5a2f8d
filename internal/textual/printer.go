package textual

import (
	"fmt"
	"sort"
	"strings"

	"kanso/internal/ir"

	"github.com/iancoleman/strcase"
)

// reserved collects every literal token the grammar matches against an
// Ident's text -- flags, jump/op mnemonics, primitive type names, and the
// two value-form keywords ("bottom", "any") plus the boolean literals.
// Printing a Def whose Name() collides with one of these would be
// unparseable, so Print runs colliding names through strcase first.
var reserved = func() map[string]bool {
	words := []string{
		"lam", "extern", "intrinsic", "jump", "bottom", "any", "true", "false", "to",
		"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr",
		"eq", "ne", "lt", "le", "gt", "ge",
		"trunc", "zext", "sext", "fptrunc", "fpext", "fptoui", "fptosi", "uitofp", "sitofp", "bitcast",
		"extract", "insert", "select", "slot", "load", "store", "enter", "leave", "run", "hlt",
		"bool", "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

// canonicalName normalizes name into something that can never be confused
// with a reserved mnemonic: every reserved word here is lowercase, so
// UpperCamel-casing a colliding identifier is enough to de-collide it
// (spec.md's DOMAIN STACK entry for this package).
func canonicalName(name string) string {
	if name == "" || !reserved[name] {
		return name
	}
	return strcase.ToCamel(name)
}

// Print renders every Continuation in w as textual IR, one `lam` declaration
// per continuation, ordered by GID for determinism. This is the printer
// twin of ParseString: feeding Print's output back through ParseString
// reconstructs an equivalent World for any World built without addressed,
// sized, or non-default-address-space pointers (the textual Ptr form has no
// syntax for those -- section DOMAIN STACK notes this as a deliberate
// surface-syntax limitation, not a bug).
func Print(w *ir.World) string {
	var conts []*ir.Continuation
	for _, d := range w.Defs() {
		if c, ok := d.(*ir.Continuation); ok {
			conts = append(conts, c)
		}
	}
	sort.Slice(conts, func(i, j int) bool { return conts[i].GID() < conts[j].GID() })

	p := &printer{w: w, names: make(map[ir.GID]string), globals: make(map[ir.GID]string)}
	for _, c := range conts {
		p.globals[c.GID()] = p.nameFor(c)
	}

	var b strings.Builder
	for i, c := range conts {
		if i > 0 {
			b.WriteByte('\n')
		}
		p.printContinuation(&b, c)
	}
	return b.String()
}

type printer struct {
	w       *ir.World
	names   map[ir.GID]string // local instruction bindings, reset per continuation
	globals map[ir.GID]string // continuation name table, stable across the whole Print call
}

func (p *printer) nameFor(d ir.Def) string {
	if n := d.Name(); n != "" {
		return canonicalName(n)
	}
	return fmt.Sprintf("v%d", uint64(d.GID()))
}

func (p *printer) printContinuation(b *strings.Builder, c *ir.Continuation) {
	b.WriteString("lam ")
	if c.IsExternal() {
		b.WriteString("extern ")
	}
	if c.IsIntrinsic() {
		b.WriteString("intrinsic ")
	}
	b.WriteString(p.globals[c.GID()])
	b.WriteByte('(')
	for i, param := range c.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		name := p.nameFor(param)
		p.names[param.GID()] = name
		fmt.Fprintf(b, "%s: %s", name, p.printType(param.Type()))
	}
	b.WriteByte(')')

	if c.IsEmpty() {
		b.WriteString(";\n")
		p.names = make(map[ir.GID]string)
		return
	}

	b.WriteString(" {\n")
	for _, instr := range p.schedule(c) {
		name := p.nameFor(instr)
		p.names[instr.GID()] = name
		fmt.Fprintf(b, "    %%%s = %s;\n", name, p.printOp(instr))
	}
	fmt.Fprintf(b, "    jump %s(", p.printValue(c.J.Callee))
	for i, a := range c.J.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.printValue(a))
	}
	b.WriteString(");\n}\n")
	p.names = make(map[ir.GID]string)
}

// schedule returns, in dependency order, every Def reachable from c's jump
// that needs its own named instruction line: everything except the
// Continuations (always printed as `@name` references to another `lam`),
// Params (already bound by the parameter list), and Literal/Bottom/AnyVal
// (printed inline as value-form literals wherever they're used).
func (p *printer) schedule(c *ir.Continuation) []ir.Def {
	var order []ir.Def
	visited := make(map[ir.GID]bool)
	var visit func(d ir.Def)
	visit = func(d ir.Def) {
		if d == nil || needsNoBinding(d) || visited[d.GID()] {
			return
		}
		visited[d.GID()] = true
		for _, op := range d.Ops() {
			visit(op)
		}
		order = append(order, d)
	}
	for _, arg := range c.J.Args {
		visit(arg)
	}
	visit(c.J.Callee)
	return order
}

func needsNoBinding(d ir.Def) bool {
	switch d.(type) {
	case *ir.Continuation, *ir.Param, *ir.Literal, *ir.Bottom, *ir.AnyVal:
		return true
	default:
		return false
	}
}

// printValue renders d as a ValueExpr: a bound %name, a @name continuation
// reference, or one of the inline literal forms.
func (p *printer) printValue(d ir.Def) string {
	switch v := d.(type) {
	case *ir.Continuation:
		return "@" + p.globals[v.GID()]
	case *ir.Literal:
		if v.Type().(*ir.PrimType).Prim == ir.Bool {
			return fmt.Sprintf("%v", v.AsBool())
		}
		return v.String()
	case *ir.Bottom:
		return "bottom:" + p.printType(v.Type())
	case *ir.AnyVal:
		return "any:" + p.printType(v.Type())
	default:
		if name, ok := p.names[d.GID()]; ok {
			return "%" + name
		}
		return "%" + p.nameFor(d)
	}
}

func (p *printer) printOp(d ir.Def) string {
	switch v := d.(type) {
	case *ir.ArithOp:
		return fmt.Sprintf("%s %s, %s", v.OpKind, p.printValue(v.Lhs()), p.printValue(v.Rhs()))
	case *ir.RelOp:
		return fmt.Sprintf("%s %s, %s", v.OpKind, p.printValue(v.Lhs()), p.printValue(v.Rhs()))
	case *ir.ConvOp:
		return fmt.Sprintf("%s %s to %s", v.OpKind, p.printValue(v.From()), p.printType(v.Type()))
	case *ir.Tuple:
		parts := make([]string, v.NumOps())
		for i, op := range v.Ops() {
			parts[i] = p.printValue(op)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ir.Extract:
		return fmt.Sprintf("extract %s, %d", p.printValue(v.Tuple()), v.Index)
	case *ir.Insert:
		return fmt.Sprintf("insert %s, %d, %s", p.printValue(v.Tuple()), v.Index, p.printValue(v.Value()))
	case *ir.Select:
		return fmt.Sprintf("select %s, %s, %s", p.printValue(v.Cond()), p.printValue(v.TVal()), p.printValue(v.FVal()))
	case *ir.Slot:
		return fmt.Sprintf("slot %s, %s", p.printType(v.Type().(*ir.PtrType).Elem()), p.printValue(v.Frame()))
	case *ir.Load:
		return fmt.Sprintf("load %s", p.printValue(v.Ptr()))
	case *ir.Store:
		return fmt.Sprintf("store %s, %s", p.printValue(v.Ptr()), p.printValue(v.Value()))
	case *ir.Enter:
		return fmt.Sprintf("enter %s", p.printValue(v.Outer()))
	case *ir.Leave:
		return fmt.Sprintf("leave %s", p.printValue(v.Frame()))
	case *ir.Run:
		return fmt.Sprintf("run %s", p.printValue(v.Def_()))
	case *ir.Hlt:
		return fmt.Sprintf("hlt %s", p.printValue(v.Def_()))
	default:
		return p.printValue(d)
	}
}

func (p *printer) printType(t ir.Type) string {
	switch v := t.(type) {
	case *ir.PtrType:
		return "*" + p.printType(v.Elem())
	case *ir.PiType:
		parts := make([]string, v.NumElems())
		for i := 0; i < v.NumElems(); i++ {
			parts[i] = p.printType(v.Elem(i))
		}
		return "(" + strings.Join(parts, ", ") + ") -> !"
	case *ir.SigmaType:
		if v.Named {
			// Named sigmas have no literal surface form here (section
			// DOMAIN STACK note in printer.go); fall back to the type's own
			// canonical name so output stays readable even though it would
			// not reparse.
			return v.String()
		}
		parts := make([]string, v.NumOps())
		for i, op := range v.Ops() {
			parts[i] = p.printType(op.(ir.Type))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ir.PrimType:
		return v.Prim.String()
	default:
		return t.String()
	}
}
