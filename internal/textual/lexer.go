// Package textual implements a round-trippable surface syntax for the IR
// itself (spec.md section 1's "builder API ... consumed by a frontend", made
// concrete): a textual assembly form naming continuations, parameters,
// primops and jumps, parsed with participle and printed back out with the
// teacher's grammar-package layout (lexer.go, grammar.go, parser.go, plus a
// printer.go the teacher's grammar package doesn't have a twin of but
// internal/parser's ast printing does).
package textual

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes the textual IR syntax. Modeled on grammar.KansoLexer: a
// single "Root" state, keywords folded into Ident and recognized by the
// grammar's literal string matches rather than their own token kind, with
// sigils ("%", "@") as punctuation so `%t` and `@entry` both lex as two
// tokens the grammar glues back together.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"DocComment", `///[^\n]*`, nil},
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Arrow", `->`, nil},
		{"Punctuation", `[{}()\[\]%@:,;!*=]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
