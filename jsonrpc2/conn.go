package jsonrpc2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Conn reads and writes typed JSON-RPC messages via a Stream. Writes
// are serialized; reads are expected from a single goroutine.
type Conn struct {
	stream *Stream
	mu     sync.Mutex
	closed bool
}

func NewConn(stream *Stream) *Conn {
	return &Conn{stream: stream}
}

// Read decodes the next message, returning a *RequestMessage,
// *NotificationMessage, or *ResponseMessage. It blocks until a message
// arrives or the stream fails.
func (c *Conn) Read(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	payload, err := c.stream.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return nil, err
	}

	// A method field means request or notification; the presence of an
	// ID distinguishes them.
	var base struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(payload, &base); err != nil {
		return nil, NewError(ParseError, fmt.Sprintf("failed to parse base message: %v", err))
	}

	hasID := len(base.ID) > 0 && string(base.ID) != "null"
	switch {
	case base.Method != "" && hasID:
		var req RequestMessage
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse request: %v", err))
		}
		return &req, nil
	case base.Method != "":
		var ntf NotificationMessage
		if err := json.Unmarshal(payload, &ntf); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse notification: %v", err))
		}
		return &ntf, nil
	case hasID:
		var resp ResponseMessage
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse response: %v", err))
		}
		return &resp, nil
	}
	return nil, NewError(InvalidRequest, "message is not a valid request, notification, or response")
}

// Write encodes and sends one message. Safe for concurrent use.
func (c *Conn) Write(ctx context.Context, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return io.ErrClosedPipe
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return c.stream.WriteMessage(msg)
}

// Close closes the underlying stream. Further writes fail with
// io.ErrClosedPipe.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.stream.Close()
}
