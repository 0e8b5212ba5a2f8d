// Package lsp implements a minimal language server over the textual IR
// surface syntax (internal/textual): hover shows a Def's canonical form and
// use-count, diagnostics stream from the parse's diag.Sink, and semantic
// tokens classify every identifier by the Def kind it names. Modeled on
// internal/lsp/handler.go in the teacher (KansoHandler), retargeted from a
// Kanso-source AST to a thorin.World.
package lsp

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"kanso/internal/diag"
	"kanso/internal/ir"
	"kanso/internal/textual"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// SemanticTokenTypes is the legend this server advertises; index into this
// slice is the TokenType value encoded in a SemanticTokens response.
var SemanticTokenTypes = []string{
	"function",  // continuation
	"parameter", // Param
	"variable",  // instruction binding
	"type",      // type name
	"keyword",   // lam/jump/extern/intrinsic/op mnemonics
	"number",    // literal
}

// SemanticTokenModifiers mirrors the teacher's modifier legend; this server
// only ever sets "declaration".
var SemanticTokenModifiers = []string{"declaration"}

// Handler implements the glsp server callbacks for one or more open textual
// IR documents.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	worlds  map[string]*ir.World
	sinks   map[string]*diag.Sink
	indexes map[string]*textual.SymbolIndex
}

// NewHandler creates an empty Handler.
func NewHandler() *Handler {
	return &Handler{
		content: make(map[string]string),
		worlds:  make(map[string]*ir.World),
		sinks:   make(map[string]*diag.Sink),
		indexes: make(map[string]*textual.SymbolIndex),
	}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("thorin-lsp Initialize called")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: &protocol.HoverOptions{},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("thorin-lsp Initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("thorin-lsp Shutdown")
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diagnostics, err := h.reparse(params.TextDocument.URI, params.TextDocument.Text)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", params.TextDocument.URI, err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// TextDocumentSyncKindFull: the last change event carries the whole document.
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("unexpected incremental change event for %s", params.TextDocument.URI)
	}
	diagnostics, err := h.reparse(params.TextDocument.URI, change.Text)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", params.TextDocument.URI, err)
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.worlds, path)
	delete(h.sinks, path)
	delete(h.indexes, path)
	return nil
}

func (h *Handler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return &protocol.CompletionList{IsIncomplete: false, Items: []protocol.CompletionItem{}}, nil
}

// TextDocumentHover resolves the Def at the cursor and renders its
// canonical String() form plus how many places reference it -- the DOMAIN
// STACK commitment for this package.
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	w, hasWorld := h.worlds[path]
	idx, hasIndex := h.indexes[path]
	h.mu.RUnlock()
	if !hasWorld || !hasIndex {
		return nil, nil
	}

	line := int(params.Position.Line) + 1
	col := int(params.Position.Character) + 1
	d, ok := idx.At(line, col)
	if !ok {
		return nil, nil
	}

	uses := len(w.Uses(d))
	text := fmt.Sprintf("%s : %s\n\n%d use(s)", d.String(), typeNameOf(d), uses)
	kind := protocol.MarkupKindPlainText
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: kind, Value: text},
	}, nil
}

func typeNameOf(d ir.Def) string {
	if t := d.Type(); t != nil {
		return t.String()
	}
	return "<type>"
}

func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	src, ok := h.content[path]
	h.mu.RUnlock()
	if !ok {
		return &protocol.SemanticTokens{}, nil
	}

	tokens := collectSemanticTokens(src)
	var data []uint32
	var prevLine, prevStart uint32
	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = tok.StartChar - prevStart
		} else {
			deltaStart = tok.StartChar
		}
		data = append(data, deltaLine, deltaStart, tok.Length, uint32(tok.TokenType), uint32(tok.TokenModifiers))
		prevLine, prevStart = tok.Line, tok.StartChar
	}
	return &protocol.SemanticTokens{Data: data}, nil
}

// reparse re-runs internal/textual over src, replacing any previously cached
// World/SymbolIndex for path and returning its diagnostics converted for
// the client.
func (h *Handler) reparse(uri protocol.DocumentUri, src string) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}

	w, sink, idx, parseErr := textual.ParseStringIndexed(path, src)
	if parseErr != nil {
		return []protocol.Diagnostic{parseErrorDiagnostic(parseErr)}, nil
	}

	h.mu.Lock()
	h.content[path] = src
	h.worlds[path] = w
	h.sinks[path] = sink
	h.indexes[path] = idx
	h.mu.Unlock()

	return convertSinkDiagnostics(sink), nil
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool { return &b }
func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
