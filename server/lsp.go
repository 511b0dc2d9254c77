// Package server exposes editor assistance for fenced script blocks
// over the Language Server Protocol: completion for the capability
// surface, syntax decoration limited to fenced regions, and per-block
// compile diagnostics.
package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/arlen/scriptpage/engine"
	"github.com/arlen/scriptpage/fenced"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "scriptpage-lsp"

// LspServer answers editor requests for Markdown documents containing
// fenced script blocks. Diagnostics compile each block on a JSWorker,
// serialized the same way the engine serializes executions.
type LspServer struct {
	worker  *engine.JSWorker
	checker *engine.Executor
	lang    string
	maxComp int

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server recognizing fenced blocks tagged lang.
func NewLSP(lang string, maxCompletions int) *LspServer {
	if lang == "" {
		lang = "scriptpage"
	}
	if maxCompletions <= 0 {
		maxCompletions = 100
	}
	worker := engine.NewJSWorker()
	s := &LspServer{
		worker:  worker,
		checker: engine.NewExecutor(worker),
		lang:    lang,
		maxComp: maxCompletions,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:         s.textDocumentCompletion,
		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "scriptpage LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     []string{tokenTypeKeyword, tokenTypeMember},
			TokenModifiers: []string{},
		},
		Full: true,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	blocks := fenced.Scan(text, s.lang)
	if !fenced.Covers(blocks, int(pos.Line)) {
		return nil, nil
	}

	prefix, ok := extractMemberPrefix(text, pos)
	if !ok {
		return nil, nil
	}

	items := s.complete(prefix)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func (s *LspServer) textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	blocks := fenced.Scan(text, s.lang)
	data := encodeTokens(decorate(text, blocks))
	return &protocol.SemanticTokens{Data: data}, nil
}

// complete filters the fixed capability-member list by prefix. An empty
// prefix (cursor right after the trigger) offers every member.
func (s *LspServer) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, m := range surfaceMembers {
		if !strings.HasPrefix(strings.ToLower(m.Name), lowerPrefix) {
			continue
		}
		kind := m.Kind
		detail := m.Signature
		insert := m.Insert
		doc := m.Doc
		items = append(items, protocol.CompletionItem{
			Label:         m.Name,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: doc,
			InsertText:    &insert,
		})
	}

	if len(items) > s.maxComp {
		items = items[:s.maxComp]
	}
	return items
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnosticsFor(text)

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticsFor compiles every fenced block and reports compile
// failures anchored at the block's body lines. Blocks are independent:
// one broken block does not mask diagnostics for the others.
func (s *LspServer) diagnosticsFor(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	for i, b := range fenced.Scan(text, s.lang) {
		err := s.checker.Check(fmt.Sprintf("block-%d", i), b.Source)
		if err == nil {
			continue
		}
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(b.StartLine + 1), Character: 0},
				End:   protocol.Position{Line: protocol.UInteger(b.EndLine), Character: 0},
			},
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		})
	}
	return diagnostics
}

// --- Text extraction helpers ---

// extractMemberPrefix returns the partial member name being typed after
// the surface trigger ("sp."). Reports false when the cursor does not
// follow the trigger.
func extractMemberPrefix(text string, pos protocol.Position) (string, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	trigger := engine.SurfaceBinding + "."
	head := line[:start]
	if !strings.HasSuffix(head, trigger) {
		return "", false
	}
	// The trigger itself must not be the tail of a longer identifier
	// (e.g. "wasp.").
	if pre := len(head) - len(trigger); pre > 0 && isIdentChar(rune(head[pre-1])) {
		return "", false
	}

	return line[start:col], true
}

func isIdentChar(ch rune) bool {
	return ch == '_' || ch == '$' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func boolPtr(b bool) *bool {
	return &b
}
