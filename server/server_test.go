package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/languagetool-lsp/jsonrpc2"
	"github.com/akhenakh/languagetool-lsp/protocol"
)

func TestRegisterValidatesSignatures(t *testing.T) {
	s := NewServer(WithLogger(log.New(io.Discard, "", 0)))

	assert.NoError(t, s.Register("test/full", func(ctx context.Context, conn *jsonrpc2.Conn, p *protocol.DidOpenTextDocumentParams) error {
		return nil
	}))
	assert.NoError(t, s.Register("test/noParams", func(ctx context.Context) error { return nil }))
	assert.NoError(t, s.Register("test/request", func(ctx context.Context, p *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
		return nil, nil
	}))

	assert.Error(t, s.Register("test/notFunc", 42))
	assert.Error(t, s.Register("test/noCtx", func(p *protocol.DidOpenTextDocumentParams) error { return nil }))
	assert.Error(t, s.Register("test/valueParams", func(ctx context.Context, p protocol.DidOpenTextDocumentParams) error { return nil }))
	assert.Error(t, s.Register("test/full", func(ctx context.Context) error { return nil })) // duplicate
}

func TestDetermineServerCapabilities(t *testing.T) {
	s := NewServer(
		WithLogger(log.New(io.Discard, "", 0)),
		WithCommands("demo.check", "demo.fix"),
	)
	require.NoError(t, s.Register(protocol.MethodTextDocumentDidOpen, func(ctx context.Context, p *protocol.DidOpenTextDocumentParams) error { return nil }))
	require.NoError(t, s.Register(protocol.MethodTextDocumentDidChange, func(ctx context.Context, p *protocol.DidChangeTextDocumentParams) error { return nil }))
	require.NoError(t, s.Register(protocol.MethodTextDocumentDidSave, func(ctx context.Context, p *protocol.DidSaveTextDocumentParams) error { return nil }))
	require.NoError(t, s.Register(protocol.MethodTextDocumentCodeAction, func(ctx context.Context, p *protocol.CodeActionParams) ([]protocol.CodeAction, error) { return nil, nil }))
	require.NoError(t, s.Register(protocol.MethodWorkspaceExecuteCommand, func(ctx context.Context, p *protocol.ExecuteCommandParams) (any, error) { return nil, nil }))

	caps := s.determineServerCapabilities()
	require.NotNil(t, caps.TextDocumentSync)
	assert.True(t, caps.TextDocumentSync.OpenClose)
	assert.Equal(t, protocol.SyncIncremental, caps.TextDocumentSync.Change)
	require.NotNil(t, caps.TextDocumentSync.Save)
	assert.True(t, caps.TextDocumentSync.Save.IncludeText)
	require.NotNil(t, caps.CodeActionProvider)
	assert.Equal(t, []protocol.CodeActionKind{protocol.QuickFix}, caps.CodeActionProvider.CodeActionKinds)
	require.NotNil(t, caps.ExecuteCommandProvider)
	assert.Equal(t, []string{"demo.check", "demo.fix"}, caps.ExecuteCommandProvider.Commands)
}

type pipeStream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeStream) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p pipeStream) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p pipeStream) Close() error {
	p.r.Close()
	return p.w.Close()
}

func TestInitializeHandshake(t *testing.T) {
	toServerR, toServerW := io.Pipe()
	toClientR, toClientW := io.Pipe()

	srv := NewServer(
		WithStream(pipeStream{r: toServerR, w: toClientW}),
		WithLogger(log.New(io.Discard, "", 0)),
		WithServerInfo("test-lsp", "0.0.1"),
	)
	require.NoError(t, srv.Register(protocol.MethodTextDocumentDidOpen, func(ctx context.Context, p *protocol.DidOpenTextDocumentParams) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- srv.Run(ctx) }()

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(pipeStream{r: toClientR, w: toServerW}))

	initParams, _ := json.Marshal(protocol.InitializeParams{})
	require.NoError(t, client.Write(ctx, &jsonrpc2.RequestMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      json.RawMessage(`1`),
		Method:  protocol.MethodInitialize,
		Params:  initParams,
	}))

	msg, err := client.Read(ctx)
	require.NoError(t, err)
	resp, ok := msg.(*jsonrpc2.ResponseMessage)
	require.True(t, ok)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "test-lsp", result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, protocol.SyncIncremental, result.Capabilities.TextDocumentSync.Change)

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestRequestBeforeInitializeRejected(t *testing.T) {
	toServerR, toServerW := io.Pipe()
	toClientR, toClientW := io.Pipe()

	srv := NewServer(
		WithStream(pipeStream{r: toServerR, w: toClientW}),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx) //nolint:errcheck

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(pipeStream{r: toClientR, w: toServerW}))
	require.NoError(t, client.Write(ctx, &jsonrpc2.RequestMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      json.RawMessage(`7`),
		Method:  protocol.MethodShutdown,
	}))

	msg, err := client.Read(ctx)
	require.NoError(t, err)
	resp, ok := msg.(*jsonrpc2.ResponseMessage)
	require.True(t, ok)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc2.ServerNotInitialized, resp.Error.Code)
}
