package server

import (
	"io"
	"log"
	"os"

	"github.com/akhenakh/languagetool-lsp/protocol"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	stream   io.ReadWriter // default: stdin/stdout
	logger   *log.Logger   // default: stderr (stdout carries the protocol)
	info     protocol.ServerInfo
	commands []string // advertised in executeCommandProvider
}

func defaultOptions() *options {
	return &options{
		stream: ReadWriter{os.Stdin, os.Stdout},
		logger: log.New(os.Stderr, "lsp: ", log.LstdFlags|log.Lshortfile),
		info:   protocol.ServerInfo{Name: "lsp-server"},
	}
}

// WithStream sets the connection stream, replacing stdin/stdout.
func WithStream(rw io.ReadWriter) Option {
	return func(o *options) {
		o.stream = rw
	}
}

// WithLogger sets the logger used by the server.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithServerInfo sets the name and version reported during initialize.
func WithServerInfo(name, version string) Option {
	return func(o *options) {
		o.info = protocol.ServerInfo{Name: name, Version: version}
	}
}

// WithCommands lists the workspace/executeCommand identifiers the
// server supports.
func WithCommands(commands ...string) Option {
	return func(o *options) {
		o.commands = commands
	}
}

// ReadWriter combines a Reader and a Writer, typically stdin and
// stdout.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// Close closes reader and writer where they support it.
func (rw ReadWriter) Close() error {
	var errR, errW error
	cR, okR := rw.Reader.(io.Closer)
	cW, okW := rw.Writer.(io.Closer)

	if okR {
		errR = cR.Close()
	}
	if okW && (!okR || cR != cW) {
		errW = cW.Close()
	}
	if errR != nil {
		return errR
	}
	return errW
}
