// Package server runs the LSP side of the process: it reads messages
// from the client, dispatches them to registered typed handlers, and
// manages the initialize/shutdown/exit lifecycle.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akhenakh/languagetool-lsp/jsonrpc2"
	"github.com/akhenakh/languagetool-lsp/protocol"
)

type serverState int

const (
	stateUninitialized serverState = iota
	stateInitializing
	stateRunning
	stateShutdown
)

// Server is an LSP server instance bound to one client connection.
type Server struct {
	conn     *jsonrpc2.Conn
	logger   *log.Logger
	info     protocol.ServerInfo
	commands []string

	mu       sync.RWMutex
	handlers map[string]*typedHandler

	state        atomic.Value // serverState
	shutdownOnce sync.Once
	pending      sync.WaitGroup

	initParams *protocol.InitializeParams
}

// NewServer creates a server. By default it communicates over
// stdin/stdout and logs to stderr.
func NewServer(opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	s := &Server{
		conn:     jsonrpc2.NewConn(jsonrpc2.NewStream(options.stream)),
		logger:   options.logger,
		info:     options.info,
		commands: options.commands,
		handlers: make(map[string]*typedHandler),
	}
	s.state.Store(stateUninitialized)

	s.Register(protocol.MethodInitialize, s.handleInitialize)
	s.Register(protocol.MethodInitialized, s.handleInitialized)
	s.Register(protocol.MethodShutdown, s.handleShutdown)
	s.Register(protocol.MethodExit, s.handleExit)
	s.Register(protocol.MethodCancelRequest, s.handleCancel)
	s.Register(protocol.MethodProgress, s.handleProgress)
	return s
}

// Conn exposes the underlying connection, for handlers that push
// notifications outside a request cycle.
func (s *Server) Conn() *jsonrpc2.Conn {
	return s.conn
}

// Register associates a handler function with an LSP method. The
// handler signature is validated; see handler.go for accepted forms.
func (s *Server) Register(method string, handlerFunc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.handlers[method]; dup {
		return fmt.Errorf("method %s already has a handler", method)
	}
	paramType, takesConn, takesParams, err := validateHandlerFunc(handlerFunc)
	if err != nil {
		return fmt.Errorf("invalid handler for %s: %w", method, err)
	}
	s.handlers[method] = &typedHandler{
		h:           handlerFunc,
		paramType:   paramType,
		takesConn:   takesConn,
		takesParams: takesParams,
	}
	return nil
}

func (s *Server) lookup(method string) *typedHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[method]
}

func (s *Server) currentState() serverState {
	state, _ := s.state.Load().(serverState)
	return state
}

// Run reads and processes messages until the connection closes or the
// context is cancelled. Each message is handled on its own goroutine;
// handlers serialize their own state.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("listening")
	defer s.logger.Println("listener stopped")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close() //nolint:errcheck
		case <-done:
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := s.conn.Read(ctx)
		if err != nil {
			switch err {
			case io.EOF, io.ErrClosedPipe, context.Canceled, context.DeadlineExceeded:
				if s.currentState() == stateShutdown {
					return nil
				}
				s.logger.Printf("client went away before shutdown: %v", err)
				if err == io.EOF {
					return io.ErrUnexpectedEOF
				}
				return err
			}
			return fmt.Errorf("read message: %w", err)
		}

		// Exit is handled inline so it can wait for the pending
		// counter to drain without counting itself.
		if n, ok := msg.(*jsonrpc2.NotificationMessage); ok && n.Method == protocol.MethodExit {
			s.dispatch(ctx, msg)
			continue
		}

		s.pending.Add(1)
		go func(m any) {
			defer s.pending.Done()
			s.dispatch(ctx, m)
		}(msg)
	}
}

func (s *Server) dispatch(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case *jsonrpc2.RequestMessage:
		s.dispatchRequest(ctx, m)
	case *jsonrpc2.NotificationMessage:
		s.dispatchNotification(ctx, m)
	default:
		// A server never sends requests that expect responses here.
		s.logger.Printf("dropping unexpected message %T", msg)
	}
}

func (s *Server) dispatchRequest(ctx context.Context, req *jsonrpc2.RequestMessage) {
	s.logger.Printf("--> %s (id %s)", req.Method, string(req.ID))

	switch state := s.currentState(); {
	case state == stateShutdown:
		s.respond(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
		return
	case state != stateRunning && req.Method != protocol.MethodInitialize:
		s.respond(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized"))
		return
	}

	handler := s.lookup(req.Method)
	if handler == nil {
		s.respond(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method)))
		return
	}

	result, err := handler.invoke(ctx, s.conn, req.Params)
	var respErr *jsonrpc2.ErrorObject
	if err != nil {
		if rpcErr, ok := err.(*jsonrpc2.ErrorObject); ok {
			respErr = rpcErr
		} else {
			s.logger.Printf("handler %s (id %s) failed: %v", req.Method, string(req.ID), err)
			respErr = jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
		}
	}
	s.respond(ctx, req.ID, result, respErr)
}

func (s *Server) dispatchNotification(ctx context.Context, n *jsonrpc2.NotificationMessage) {
	s.logger.Printf("--> %s", n.Method)

	state := s.currentState()
	if state == stateShutdown && n.Method != protocol.MethodExit {
		return
	}
	// $-prefixed housekeeping may arrive at any time; everything else
	// waits for the handshake.
	early := n.Method == protocol.MethodCancelRequest ||
		n.Method == protocol.MethodProgress ||
		n.Method == protocol.MethodExit
	if state == stateUninitialized && !early {
		s.logger.Printf("dropping %s before initialization", n.Method)
		return
	}

	handler := s.lookup(n.Method)
	if handler == nil {
		// Unknown notifications are ignored per the protocol.
		return
	}
	if _, err := handler.invoke(ctx, s.conn, n.Params); err != nil {
		s.logger.Printf("notification %s failed: %v", n.Method, err)
	}
}

func (s *Server) respond(ctx context.Context, id json.RawMessage, result any, respErr *jsonrpc2.ErrorObject) {
	if len(id) == 0 || string(id) == "null" {
		return
	}

	resp := &jsonrpc2.ResponseMessage{JSONRPC: jsonrpc2.Version, ID: id}
	switch {
	case respErr != nil:
		resp.Error = respErr
	case result != nil:
		raw, err := json.Marshal(result)
		if err != nil {
			s.logger.Printf("cannot marshal result for id %s: %v", string(id), err)
			resp.Error = jsonrpc2.NewError(jsonrpc2.InternalError, fmt.Sprintf("marshal result: %v", err))
		} else {
			resp.Result = raw
		}
	default:
		// LSP expects an explicit null result.
		resp.Result = json.RawMessage("null")
	}

	if err := s.conn.Write(ctx, resp); err != nil {
		s.logger.Printf("cannot write response for id %s: %v", string(id), err)
	}
}

func (s *Server) handleInitialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if !s.state.CompareAndSwap(stateUninitialized, stateInitializing) {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server already initialized or shutting down")
	}
	s.initParams = params
	if params.ClientInfo != nil {
		s.logger.Printf("client: %s %s", params.ClientInfo.Name, params.ClientInfo.Version)
	}

	info := s.info
	// The running state is entered on the 'initialized' notification.
	return &protocol.InitializeResult{
		Capabilities: s.determineServerCapabilities(),
		ServerInfo:   &info,
	}, nil
}

// determineServerCapabilities derives the advertised capabilities from
// the registered handlers.
func (s *Server) determineServerCapabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var caps protocol.ServerCapabilities

	_, hasOpen := s.handlers[protocol.MethodTextDocumentDidOpen]
	_, hasChange := s.handlers[protocol.MethodTextDocumentDidChange]
	_, hasClose := s.handlers[protocol.MethodTextDocumentDidClose]
	_, hasSave := s.handlers[protocol.MethodTextDocumentDidSave]
	if hasOpen || hasChange || hasClose || hasSave {
		caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
			OpenClose: hasOpen || hasClose,
			Change:    protocol.SyncIncremental,
		}
		if hasSave {
			caps.TextDocumentSync.Save = &protocol.SaveOptions{IncludeText: true}
		}
	}
	if _, ok := s.handlers[protocol.MethodTextDocumentCodeAction]; ok {
		caps.CodeActionProvider = &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
		}
	}
	if _, ok := s.handlers[protocol.MethodWorkspaceExecuteCommand]; ok {
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
			Commands: s.commands,
		}
	}
	return caps
}

func (s *Server) handleInitialized(ctx context.Context, params *protocol.InitializedParams) error {
	if !s.state.CompareAndSwap(stateInitializing, stateRunning) {
		s.logger.Printf("'initialized' received in state %d", s.currentState())
	}
	return nil
}

func (s *Server) handleShutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.state.Store(stateShutdown)
		s.logger.Println("shutting down")
	})
	// Respond immediately; the wait for pending work happens in exit.
	return nil
}

func (s *Server) handleExit(ctx context.Context) {
	code := 1
	if s.currentState() == stateShutdown {
		code = 0
	}

	drained := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		s.logger.Println("exit: timed out waiting for pending work")
	}

	s.logger.Printf("exiting with code %d", code)
	s.conn.Close() //nolint:errcheck
	os.Exit(code)
}

func (s *Server) handleCancel(ctx context.Context, params *protocol.CancelParams) {
	// Request cancellation is not implemented; checks are cheap enough
	// that stale results are dropped by version instead.
	if params != nil {
		s.logger.Printf("cancel requested for id %s", string(params.ID))
	}
}

func (s *Server) handleProgress(ctx context.Context, params *protocol.ProgressParams) {
	if params != nil {
		s.logger.Printf("progress for token %s", string(params.Token))
	}
}

// Notify sends a notification to the client. Only valid while the
// server is running.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if state := s.currentState(); state != stateRunning {
		return fmt.Errorf("cannot notify %s in state %d", method, state)
	}

	var raw json.RawMessage
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
	}
	return s.conn.Write(ctx, &jsonrpc2.NotificationMessage{
		JSONRPC: jsonrpc2.Version,
		Method:  method,
		Params:  raw,
	})
}
