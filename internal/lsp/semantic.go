package lsp

import (
	"strings"

	"kanso/internal/textual"

	"github.com/alecthomas/participle/v2/lexer"
)

// SemanticToken is one encoded entry of a SemanticTokensFull response (0-based
// line/column, following the teacher's internal/lsp/semantic.go shape).
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

var reservedKeywords = map[string]bool{
	"lam": true, "extern": true, "intrinsic": true, "jump": true, "bottom": true, "any": true,
	"true": true, "false": true, "to": true,
	"add": true, "sub": true, "mul": true, "div": true, "rem": true, "and": true, "or": true,
	"xor": true, "shl": true, "shr": true, "eq": true, "ne": true, "lt": true, "le": true,
	"gt": true, "ge": true, "trunc": true, "zext": true, "sext": true, "fptrunc": true,
	"fpext": true, "fptoui": true, "fptosi": true, "uitofp": true, "sitofp": true, "bitcast": true,
	"extract": true, "insert": true, "select": true, "slot": true, "load": true, "store": true,
	"enter": true, "leave": true, "run": true, "hlt": true,
}

var primTypeNames = map[string]bool{
	"bool": true, "i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "f32": true, "f64": true,
}

// collectSemanticTokens tokenizes src with internal/textual.Lexer directly
// (rather than walking a parsed Program, unlike the teacher's AST-walking
// collectSemanticTokens) so a document that doesn't fully parse yet still
// gets highlighted -- a stateful lexer has no notion of "unexpected token",
// it just keeps producing tokens.
func collectSemanticTokens(src string) []SemanticToken {
	lex, err := textual.Lexer.Lex("", strings.NewReader(src))
	if err != nil {
		return nil
	}

	var tokens []SemanticToken
	prevSigil := byte(0) // last punctuation seen, to tell `%x` from `@x`
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			break
		}
		switch tok.Type {
		case textualSymbol("Ident"):
			tokens = append(tokens, classifyIdent(tok, prevSigil))
			prevSigil = 0
		case textualSymbol("Integer"), textualSymbol("Float"):
			tokens = append(tokens, makeToken(tok, 4, 0))
			prevSigil = 0
		case textualSymbol("Punctuation"):
			if len(tok.Value) == 1 && (tok.Value[0] == '%' || tok.Value[0] == '@') {
				prevSigil = tok.Value[0]
			} else {
				prevSigil = 0
			}
		default:
			prevSigil = 0
		}
	}
	return tokens
}

func classifyIdent(tok lexer.Token, sigil byte) SemanticToken {
	switch {
	case reservedKeywords[tok.Value] || primTypeNames[tok.Value]:
		return makeToken(tok, 4, 0)
	case sigil == '@':
		return makeToken(tok, 0, 0)
	case sigil == '%':
		return makeToken(tok, 2, 0)
	default:
		return makeToken(tok, 3, 0)
	}
}

func makeToken(tok lexer.Token, tokenType, modifiers int) SemanticToken {
	return SemanticToken{
		Line:           uint32(tok.Pos.Line - 1),
		StartChar:      uint32(tok.Pos.Column - 1),
		Length:         uint32(len(tok.Value)),
		TokenType:      tokenType,
		TokenModifiers: modifiers,
	}
}

// textualSymbol resolves a named lexer rule to its TokenType, matched
// against internal/textual.Lexer's own registered symbol table so this file
// never hardcodes a numeric token id that rule reordering would invalidate.
func textualSymbol(name string) lexer.TokenType {
	if t, ok := textual.Lexer.Symbols()[name]; ok {
		return t
	}
	return lexer.EOF
}
