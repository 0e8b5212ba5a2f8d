package textual

import (
	"fmt"
	"os"
	"strconv"

	"kanso/internal/diag"
	"kanso/internal/ir"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"
)

var participleParser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(3),
)

// ParseFile reads path and builds a World from its textual IR, the CLI's
// entry point into this package (mirrors grammar.ParseFile/parser.ParseSource
// in the teacher).
func ParseFile(path string) (*ir.World, *diag.Sink, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// ParseString parses source (named path for error messages) into a fresh
// World.
func ParseString(path, source string) (*ir.World, *diag.Sink, error) {
	w, sink, _, err := parseIndexed(path, source)
	return w, sink, err
}

// ParseFileIndexed is ParseFile plus a SymbolIndex mapping source positions
// to the Def they name or reference -- what internal/lsp's hover and
// go-to-definition handlers need that a plain ParseFile caller (the CLI)
// does not.
func ParseFileIndexed(path string) (*ir.World, *diag.Sink, *SymbolIndex, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parseIndexed(path, string(source))
}

// ParseStringIndexed is ParseString plus a SymbolIndex, for callers (the LSP
// handler) that hold the editor's live buffer rather than a file on disk.
func ParseStringIndexed(path, source string) (*ir.World, *diag.Sink, *SymbolIndex, error) {
	return parseIndexed(path, source)
}

func parseIndexed(path, source string) (*ir.World, *diag.Sink, *SymbolIndex, error) {
	prog, err := participleParser.ParseString(path, source)
	if err != nil {
		reportParseError(source, err)
		return nil, nil, nil, err
	}
	w := ir.NewWorld()
	b := newBuilder(w, w.Diag)
	b.build(prog)
	return w, w.Diag, &SymbolIndex{entries: b.index}, nil
}

// reportParseError prints a friendly caret-style parse error, same shape as
// grammar.ParseFile/cmd/kanso-cli's reportParseError in the teacher.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}
	pos := pe.Position()
	color.Red("syntax error in %s at line %d, column %d: %s", pos.Filename, pos.Line, pos.Column, pe.Message())
}

// symbolRef records that the identifier spanning [Pos, EndPos) names or
// references resolved.
type symbolRef struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Resolved ir.Def
}

// SymbolIndex maps a cursor position in a parsed source file back to the Def
// it falls on, grounded on the teacher's internal/lsp semantic-token walk
// (grammar/shared.go's Pos/EndPos convention) but built once during parsing
// instead of re-walked per request.
type SymbolIndex struct {
	entries []symbolRef
}

// At returns the Def whose identifier span contains the 1-based line/column,
// or false if no tracked identifier covers that position.
func (idx *SymbolIndex) At(line, col int) (ir.Def, bool) {
	if idx == nil {
		return nil, false
	}
	for _, e := range idx.entries {
		if e.Pos.Line != line {
			continue
		}
		if col >= e.Pos.Column && col < e.EndPos.Column {
			return e.Resolved, true
		}
	}
	return nil, false
}

// builder translates a parsed Program into World builder calls. Continuation
// names are registered up front (pass 1) so forward references -- a `jump`
// to a `lam` declared later in the file -- resolve correctly; each body's
// instructions and jump are then built against that global table plus a
// fresh local scope seeded with its own parameters (pass 2). Every
// declaration and reference site visited along the way is recorded into
// index for SymbolIndex to serve later.
type builder struct {
	w      *ir.World
	sink   *diag.Sink
	global map[string]*ir.Continuation
	index  []symbolRef
}

func newBuilder(w *ir.World, sink *diag.Sink) *builder {
	return &builder{w: w, sink: sink, global: make(map[string]*ir.Continuation)}
}

func (b *builder) record(id PosIdent, d ir.Def) {
	b.index = append(b.index, symbolRef{Pos: id.Pos, EndPos: id.EndPos, Resolved: d})
}

func (b *builder) build(prog *Program) {
	for _, decl := range prog.Lams {
		pi := b.lamPi(decl)
		flags := ir.FlagNone
		for _, f := range decl.Flags {
			switch f {
			case "extern":
				flags |= ir.FlagExternal
			case "intrinsic":
				flags |= ir.FlagIntrinsic
			}
		}
		c := b.w.Continuation(pi, flags, decl.Name.Value)
		b.global[decl.Name.Value] = c
		b.record(decl.Name, c)
	}
	for _, decl := range prog.Lams {
		if decl.Body == nil {
			continue
		}
		b.buildBody(b.global[decl.Name.Value], decl)
	}
}

func (b *builder) lamPi(decl *LamDecl) *ir.PiType {
	types := make([]ir.Type, len(decl.Params))
	for i, p := range decl.Params {
		types[i] = b.resolveType(p.Type)
	}
	return b.w.Pi(types...).(*ir.PiType)
}

func (b *builder) buildBody(c *ir.Continuation, decl *LamDecl) {
	locals := make(map[string]ir.Def, len(decl.Params)+len(decl.Body.Instrs))
	for i, p := range decl.Params {
		param := c.Param(i)
		locals[p.Name.Value] = param
		b.record(p.Name, param)
	}
	for _, instr := range decl.Body.Instrs {
		d := b.buildOp(locals, instr.Op)
		locals[instr.Name.Value] = d
		b.record(instr.Name, d)
	}
	callee := b.resolveCallee(locals, decl.Body.Jump.Callee)
	args := make([]ir.Def, len(decl.Body.Jump.Args))
	for i, a := range decl.Body.Jump.Args {
		args[i] = b.resolveValue(locals, a)
	}
	b.w.SetJump(c, callee, args)
}

func (b *builder) resolveCallee(locals map[string]ir.Def, v *ValueExpr) ir.Def {
	if v.Global != nil {
		if c, ok := b.global[v.Global.Value]; ok {
			b.record(*v.Global, c)
			return c
		}
		b.sink.UnknownSymbol(v.Global.Value, "")
		return b.w.Bottom(b.w.Pi())
	}
	return b.resolveValue(locals, v)
}

func (b *builder) resolveValue(locals map[string]ir.Def, v *ValueExpr) ir.Def {
	w := b.w
	switch {
	case v.Local != nil:
		if d, ok := locals[v.Local.Value]; ok {
			b.record(*v.Local, d)
			return d
		}
		b.sink.UnknownSymbol(v.Local.Value, "")
		return w.Bottom(w.TypeI32())
	case v.Global != nil:
		if c, ok := b.global[v.Global.Value]; ok {
			b.record(*v.Global, c)
			return c
		}
		b.sink.UnknownSymbol(v.Global.Value, "")
		return w.Bottom(w.Pi())
	case v.Bottom != nil:
		return w.Bottom(b.resolveType(v.Bottom))
	case v.Any != nil:
		return w.Any(b.resolveType(v.Any))
	case v.Bool != nil:
		return w.Lit(ir.Bool, *v.Bool == "true")
	case v.Num != nil:
		return b.buildNumber(v.Num)
	default:
		panic("textual: empty ValueExpr")
	}
}

func (b *builder) buildNumber(n *NumberLit) ir.Def {
	w := b.w
	if n.Type == nil {
		// An untyped literal defaults to i32 if it parses as an integer,
		// matching the common case in hand-written fixtures; a literal with
		// a decimal point that is still untyped defaults to f64.
		if isFloatLiteral(n.Value) {
			f, _ := strconv.ParseFloat(n.Value, 64)
			return w.Lit(ir.F64, f)
		}
		u, _ := strconv.ParseUint(n.Value, 0, 64)
		return w.Lit(ir.I32, u)
	}
	prim := b.resolveType(n.Type)
	pt, ok := prim.(*ir.PrimType)
	if !ok {
		b.sink.ContractViolation("", "literal type %s is not a primitive kind", prim)
		return w.Bottom(prim)
	}
	if pt.Prim.IsFloat() {
		f, _ := strconv.ParseFloat(n.Value, 64)
		return w.Lit(pt.Prim, f)
	}
	u, _ := strconv.ParseUint(n.Value, 0, 64)
	return w.Lit(pt.Prim, u)
}

func isFloatLiteral(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

func (b *builder) resolveType(t *TypeExpr) ir.Type {
	w := b.w
	switch {
	case t.Ptr != nil:
		return w.Ptr(b.resolveType(t.Ptr.Elem), -1, 0, 0)
	case t.Pi != nil:
		types := make([]ir.Type, len(t.Pi.Params))
		for i, p := range t.Pi.Params {
			types[i] = b.resolveType(p)
		}
		return w.Pi(types...)
	case t.Sigma != nil:
		types := make([]ir.Type, len(t.Sigma.Elems))
		for i, e := range t.Sigma.Elems {
			types[i] = b.resolveType(e)
		}
		return w.Sigma(types...)
	default:
		return b.resolvePrim(t.Prim)
	}
}

func (b *builder) resolvePrim(name string) ir.Type {
	switch name {
	case "bool":
		return b.w.TypeBool()
	case "i8":
		return b.w.TypeI8()
	case "i16":
		return b.w.TypeI16()
	case "i32":
		return b.w.TypeI32()
	case "i64":
		return b.w.TypeI64()
	case "u8":
		return b.w.TypeU8()
	case "u16":
		return b.w.TypeU16()
	case "u32":
		return b.w.TypeU32()
	case "u64":
		return b.w.TypeU64()
	case "f32":
		return b.w.TypeF32()
	case "f64":
		return b.w.TypeF64()
	default:
		b.sink.UnknownSymbol(name, "")
		return b.w.TypeI32()
	}
}

func (b *builder) buildOp(locals map[string]ir.Def, op *OpExpr) ir.Def {
	w := b.w
	switch {
	case op.Arith != nil:
		return w.ArithOp(arithKind(op.Arith.Op), b.resolveValue(locals, op.Arith.Lhs), b.resolveValue(locals, op.Arith.Rhs))
	case op.Rel != nil:
		return w.RelOp(relKind(op.Rel.Op), b.resolveValue(locals, op.Rel.Lhs), b.resolveValue(locals, op.Rel.Rhs))
	case op.Conv != nil:
		return w.ConvOp(convKind(op.Conv.Op), b.resolveValue(locals, op.Conv.From), b.resolveType(op.Conv.To))
	case op.Extract != nil:
		return w.Extract(b.resolveValue(locals, op.Extract.Tuple), op.Extract.Index)
	case op.Insert != nil:
		return w.Insert(b.resolveValue(locals, op.Insert.Tuple), op.Insert.Index, b.resolveValue(locals, op.Insert.Value))
	case op.Select != nil:
		return w.Select(b.resolveValue(locals, op.Select.Cond), b.resolveValue(locals, op.Select.TVal), b.resolveValue(locals, op.Select.FVal))
	case op.Slot != nil:
		return w.AllocSlot(b.resolveType(op.Slot.Elem), b.resolveValue(locals, op.Slot.Frame))
	case op.Load != nil:
		return w.Load(b.resolveValue(locals, op.Load.Ptr))
	case op.Store != nil:
		return w.Store(b.resolveValue(locals, op.Store.Ptr), b.resolveValue(locals, op.Store.Value))
	case op.Enter != nil:
		return w.Enter(b.resolveValue(locals, op.Enter.Outer))
	case op.Leave != nil:
		return w.Leave(b.resolveValue(locals, op.Leave.Frame))
	case op.Run != nil:
		return w.RunMarker(b.resolveValue(locals, op.Run.Val))
	case op.Hlt != nil:
		return w.HltMarker(b.resolveValue(locals, op.Hlt.Val))
	case op.Tuple != nil:
		elems := make([]ir.Def, len(op.Tuple.Elems))
		for i, e := range op.Tuple.Elems {
			elems[i] = b.resolveValue(locals, e)
		}
		return w.Tuple(elems...)
	case op.Value != nil:
		return b.resolveValue(locals, op.Value)
	default:
		panic("textual: empty OpExpr")
	}
}

func arithKind(m string) ir.ArithKind {
	for k := ir.Add; k <= ir.Shr; k++ {
		if k.String() == m {
			return k
		}
	}
	panic("textual: unknown arith mnemonic " + m)
}

func relKind(m string) ir.RelKind {
	for k := ir.Eq; k <= ir.Ge; k++ {
		if k.String() == m {
			return k
		}
	}
	panic("textual: unknown rel mnemonic " + m)
}

func convKind(m string) ir.ConvKind {
	for k := ir.Trunc; k <= ir.Bitcast; k++ {
		if k.String() == m {
			return k
		}
	}
	panic("textual: unknown conv mnemonic " + m)
}
