// Command languagetool-lsp is a language server that checks prose
// through the LanguageTool API and keeps diagnostics synchronized with
// the edited buffers.
package main

import (
	"context"
	"log"
	"os"

	"github.com/akhenakh/languagetool-lsp/checker"
	"github.com/akhenakh/languagetool-lsp/server"
)

const version = "0.1.0"

func main() {
	ctx := context.Background()
	logger := log.New(os.Stderr, "[languagetool-lsp] ", log.LstdFlags|log.Lshortfile)

	srv := server.NewServer(
		server.WithLogger(logger),
		server.WithServerInfo("languagetool-lsp", version),
		server.WithCommands(checker.Commands()...),
	)

	backend := checker.NewBackend(logger)
	if err := backend.Register(srv); err != nil {
		logger.Fatalf("failed to register handlers: %v", err)
	}

	logger.Println("starting LanguageTool LSP server on stdio")
	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("server error: %v", err)
	}
	logger.Println("server stopped")
}
