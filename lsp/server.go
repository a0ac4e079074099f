// Package lsp serves syntax trees over the language server protocol.
// Documents are parsed on open, reconciled incrementally on change, and
// parse errors are published as diagnostics.
package lsp

import (
	"context"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/tree"
)

const lsName = "arbor"

type Server struct {
	grammar *grammar.Grammar
	docs    *documentStore
	handler protocol.Handler
	server  *server.Server
	log     commonlog.Logger
	version string
}

func NewServer(g *grammar.Grammar, version string) *Server {
	s := &Server{
		grammar: g,
		docs:    newDocumentStore(),
		log:     commonlog.GetLogger(lsName),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		SetTrace:              s.setTrace,
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.docs.clear()
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	text := []byte(params.TextDocument.Text)
	t, err := parser.Parse(context.Background(), s.grammar, text)
	if err != nil {
		s.log.Errorf("parse %s: %v", params.TextDocument.URI, err)
		return nil
	}
	s.docs.put(params.TextDocument.URI, &document{text: text, tree: t})
	s.publishDiagnostics(ctx, params.TextDocument.URI, t)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc := s.docs.get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}
	for _, change := range params.ContentChanges {
		var err error
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			err = doc.applyIncremental(s.grammar, c)
		case protocol.TextDocumentContentChangeEventWhole:
			err = doc.replaceAll(s.grammar, []byte(c.Text))
		}
		if err != nil {
			s.log.Errorf("reconcile %s: %v", params.TextDocument.URI, err)
			return nil
		}
	}
	s.publishDiagnostics(ctx, params.TextDocument.URI, doc.tree)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.delete(params.TextDocument.URI)
	return nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string, t *tree.Tree) {
	diagnostics := collectDiagnostics(t)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// collectDiagnostics turns error and missing nodes into diagnostics. Only
// the outermost error in a run is reported so a single bad token does not
// flood the client.
func collectDiagnostics(t *tree.Tree) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	severity := protocol.DiagnosticSeverityError
	source := lsName

	tree.Walk(t.Root(), func(n tree.Node) bool {
		if !n.HasError() && !n.IsMissing() {
			return false
		}
		var message string
		switch {
		case n.IsMissing():
			message = "missing " + n.Kind()
		case n.IsError():
			message = "unexpected text"
		default:
			return true
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    spanToRange(n.Span()),
			Severity: &severity,
			Source:   &source,
			Message:  message,
		})
		return false
	})

	return diagnostics
}

func spanToRange(sp tree.Span) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: sp.StartPoint.Row, Character: sp.StartPoint.Column},
		End:   protocol.Position{Line: sp.EndPoint.Row, Character: sp.EndPoint.Column},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
