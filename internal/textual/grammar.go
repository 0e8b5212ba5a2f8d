package textual

import "github.com/alecthomas/participle/v2/lexer"

// PosIdent is an identifier tagged with its source span, grounded on
// grammar.PosIdent in the teacher: participle auto-populates Pos/EndPos on
// any field named exactly that, letting the LSP hover/semantic-token code
// map a cursor position back to the declaration it names without a second
// parse pass.
type PosIdent struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Ident`
}

// Program is the root of a parsed textual-IR file: a flat list of
// continuation declarations (order irrelevant; forward references to a
// later `lam` are legal, same as World builder calls in any order).
type Program struct {
	Lams []*LamDecl `@@*`
}

// LamDecl is one continuation: optional flags, a parameter list, and either
// a body (`{ ... }`) or a bare `;` for a forward declaration (the textual
// equivalent of a builder creating a Continuation and marking it external
// before any frontend code has supplied its jump).
type LamDecl struct {
	Doc    *string      `@DocComment?`
	Flags  []string     `"lam" ( @("extern" | "intrinsic") )*`
	Name   PosIdent     `@@`
	Params []*ParamDecl `"(" [ @@ { "," @@ } ] ")"`
	Body   *BodyDecl    `( @@ | ";" )`
}

// ParamDecl names one formal parameter and its type.
type ParamDecl struct {
	Name PosIdent  `@@ ":"`
	Type *TypeExpr `@@`
}

// BodyDecl is a sequence of named instructions terminated by the single tail
// jump every Continuation must eventually carry (section 3).
type BodyDecl struct {
	Instrs []*InstrDecl `"{" @@*`
	Jump   *JumpDecl    `@@ "}"`
}

// InstrDecl binds `%name` to the result of one primop.
type InstrDecl struct {
	Name PosIdent `"%" @@ "="`
	Op   *OpExpr  `@@ ";"`
}

// JumpDecl is a continuation's tail call: `jump <callee>(<args>);`.
type JumpDecl struct {
	Callee *ValueExpr   `"jump" @@`
	Args   []*ValueExpr `"(" [ @@ { "," @@ } ] ")" ";"`
}

// TypeExpr covers the type algebra's surface forms: `*T` (pointer),
// `(T, T) -> !` (pi), `[T, T]` (unnamed sigma/tuple), or a bare identifier
// naming a primitive kind (named sigmas have no literal syntax here --
// nothing in the textual surface needs to construct one).
type TypeExpr struct {
	Ptr   *PtrTypeExpr   `  @@`
	Pi    *PiTypeExpr    `| @@`
	Sigma *SigmaTypeExpr `| @@`
	Prim  string         `| @Ident`
}

type PtrTypeExpr struct {
	Elem *TypeExpr `"*" @@`
}

type PiTypeExpr struct {
	Params []*TypeExpr `"(" [ @@ { "," @@ } ] ")" "->" "!"`
}

type SigmaTypeExpr struct {
	Elems []*TypeExpr `"[" [ @@ { "," @@ } ] "]"`
}

// ValueExpr is an operand reference: a local instruction/param (`%x`), a
// global continuation (`@name`), a bottom/any value of a type, a boolean, or
// a number literal.
type ValueExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Local  *PosIdent  `(  "%" @@`
	Global *PosIdent  ` | "@" @@`
	Bottom *TypeExpr  ` | "bottom" ":" @@`
	Any    *TypeExpr  ` | "any" ":" @@`
	Bool   *string    ` | @("true" | "false")`
	Num    *NumberLit ` | @@ )`
}

// NumberLit is an integer or float literal, optionally typed (`5:i32`);
// untyped literals default to i32 or f64 in the parser depending on shape.
type NumberLit struct {
	Value string    `@(Integer|Float)`
	Type  *TypeExpr  `[ ":" @@ ]`
}

// OpExpr is the right-hand side of an instruction: exactly one primop kind,
// matching the mnemonics each ir primop's own String() method prints
// (internal/ir/primop.go), so a printed World round-trips through this
// grammar unchanged.
type OpExpr struct {
	Arith   *ArithExpr   `  @@`
	Rel     *RelExpr     `| @@`
	Conv    *ConvExpr    `| @@`
	Extract *ExtractExpr `| @@`
	Insert  *InsertExpr  `| @@`
	Select  *SelectExpr  `| @@`
	Slot    *SlotExpr    `| @@`
	Load    *LoadExpr    `| @@`
	Store   *StoreExpr   `| @@`
	Enter   *EnterExpr   `| @@`
	Leave   *LeaveExpr   `| @@`
	Run     *RunExpr     `| @@`
	Hlt     *HltExpr     `| @@`
	Tuple   *TupleExpr   `| @@`
	Value   *ValueExpr   `| @@`
}

type ArithExpr struct {
	Op  string     `@("add"|"sub"|"mul"|"div"|"rem"|"and"|"or"|"xor"|"shl"|"shr")`
	Lhs *ValueExpr `@@ ","`
	Rhs *ValueExpr `@@`
}

type RelExpr struct {
	Op  string     `@("eq"|"ne"|"lt"|"le"|"gt"|"ge")`
	Lhs *ValueExpr `@@ ","`
	Rhs *ValueExpr `@@`
}

type ConvExpr struct {
	Op   string     `@("trunc"|"zext"|"sext"|"fptrunc"|"fpext"|"fptoui"|"fptosi"|"uitofp"|"sitofp"|"bitcast")`
	From *ValueExpr `@@ "to"`
	To   *TypeExpr  `@@`
}

type TupleExpr struct {
	Elems []*ValueExpr `"(" [ @@ { "," @@ } ] ")"`
}

type ExtractExpr struct {
	Tuple *ValueExpr `"extract" @@ ","`
	Index int        `@Integer`
}

type InsertExpr struct {
	Tuple *ValueExpr `"insert" @@ ","`
	Index int        `@Integer ","`
	Value *ValueExpr `@@`
}

type SelectExpr struct {
	Cond *ValueExpr `"select" @@ ","`
	TVal *ValueExpr `@@ ","`
	FVal *ValueExpr `@@`
}

type SlotExpr struct {
	Elem  *TypeExpr  `"slot" @@ ","`
	Frame *ValueExpr `@@`
}

type LoadExpr struct {
	Ptr *ValueExpr `"load" @@`
}

type StoreExpr struct {
	Ptr   *ValueExpr `"store" @@ ","`
	Value *ValueExpr `@@`
}

type EnterExpr struct {
	Outer *ValueExpr `"enter" @@`
}

type LeaveExpr struct {
	Frame *ValueExpr `"leave" @@`
}

type RunExpr struct {
	Val *ValueExpr `"run" @@`
}

type HltExpr struct {
	Val *ValueExpr `"hlt" @@`
}
