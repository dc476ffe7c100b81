// Package lsp exposes the spec parser as a language server that
// publishes parse diagnostics for spec files over stdio.
package lsp

import (
	"errors"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/harp-pm/harp/parser"
)

const lsName = "harp"

type Server struct {
	handler   protocol.Handler
	server    *server.Server
	version   string
	documents map[string]string
}

func NewServer(version string) *Server {
	ls := &Server{
		version:   version,
		documents: make(map[string]string),
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    intPtr(int(protocol.TextDocumentSyncKindFull)),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	ls.documents[uri] = params.TextDocument.Text
	ls.publishDiagnostics(ctx, uri, params.TextDocument.Text)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.documents[uri] = textChange.Text
			ls.publishDiagnostics(ctx, uri, textChange.Text)
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	delete(ls.documents, params.TextDocument.URI)
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	if params.Text != nil {
		ls.documents[uri] = *params.Text
	}
	ls.publishDiagnostics(ctx, uri, ls.documents[uri])
	return nil
}

// publishDiagnostics parses every non-empty, non-comment line as a spec
// expression and reports parse failures against the offending line.
func (ls *Server) publishDiagnostics(ctx *glsp.Context, uri string, text string) {
	diagnostics := []protocol.Diagnostic{}

	for lineNo, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if _, err := parser.Parse(trimmed); err != nil {
			diagnostics = append(diagnostics, diagnosticsForLine(uint32(lineNo), line, trimmed, err)...)
		}
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticsForLine converts a parse error into ranges within the
// original line. Error spans are byte offsets into the trimmed text, so
// the leading indentation is added back in.
func diagnosticsForLine(lineNo uint32, line, trimmed string, err error) []protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lsName

	var parseErr *parser.Error
	indent := uint32(strings.Index(line, trimmed))
	if errors.As(err, &parseErr) && len(parseErr.Spans) > 0 {
		out := make([]protocol.Diagnostic, 0, len(parseErr.Spans))
		for _, span := range parseErr.Spans {
			out = append(out, protocol.Diagnostic{
				Range: protocol.Range{
					Start: protocol.Position{Line: lineNo, Character: indent + uint32(span[0])},
					End:   protocol.Position{Line: lineNo, Character: indent + uint32(span[1])},
				},
				Severity: &severity,
				Source:   &source,
				Message:  parseErr.Message,
			})
		}
		return out
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: lineNo, Character: indent},
			End:   protocol.Position{Line: lineNo, Character: indent + uint32(len(trimmed))},
		},
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}}
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
