package jsonrpc2

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	headerContentLength = "Content-Length"
	headerSeparator     = "\r\n"
)

// Stream frames JSON-RPC messages over an io.ReadWriter using the LSP
// base protocol headers.
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
	source io.ReadWriter
}

func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		reader: bufio.NewReader(rw),
		writer: rw,
		source: rw,
	}
}

// Close closes the underlying source if it supports it.
func (s *Stream) Close() error {
	if closer, ok := s.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadMessage reads one framed message and returns its JSON payload.
func (s *Stream) ReadMessage() ([]byte, error) {
	contentLength := -1
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read header line: %w", err)
		}
		line = strings.TrimSuffix(line, headerSeparator)
		if line == "" {
			break // end of headers
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), headerContentLength) {
			length, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length %q: %w", value, err)
			}
			if length <= 0 {
				return nil, fmt.Errorf("invalid Content-Length: %d", length)
			}
			contentLength = length
		}
		// Content-Type is ignored; payloads are always utf-8 JSON.
	}

	if contentLength == -1 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, fmt.Errorf("failed to read message content (expected %d bytes): %w", contentLength, err)
	}
	return payload, nil
}

// WriteMessage marshals msg and writes it as one framed message. Header
// and body go out in a single Write so concurrent writers cannot
// interleave frames.
func (s *Stream) WriteMessage(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d%s%s", headerContentLength, len(payload), headerSeparator, headerSeparator)
	buf.Write(payload)

	if _, err := s.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
