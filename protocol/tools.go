package protocol

import (
	"context"
	"encoding/json"
	"log"

	"github.com/akhenakh/languagetool-lsp/jsonrpc2"
)

// ShowNotification sends a window/showMessage notification.
func ShowNotification(ctx context.Context, conn *jsonrpc2.Conn, msgType MessageType, message string) {
	if conn == nil {
		log.Printf("Warning: attempted to show notification with nil connection: %s", message)
		return
	}
	rawParams, err := json.Marshal(ShowMessageParams{Type: msgType, Message: message})
	if err != nil {
		log.Printf("Error marshalling showMessage params: %v", err)
		return
	}
	notification := &jsonrpc2.NotificationMessage{
		JSONRPC: jsonrpc2.Version,
		Method:  MethodWindowShowMessage,
		Params:  rawParams,
	}
	if err := conn.Write(ctx, notification); err != nil {
		log.Printf("Error sending showMessage notification: %v", err)
	}
}

// SendDiagnostics publishes the full current diagnostic set for uri.
// version lets the client discard results for content it has already
// replaced; pass a negative version to omit it.
func SendDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri DocumentURI, version int, diagnostics []Diagnostic) {
	if conn == nil {
		log.Printf("Warning: attempted to send diagnostics with nil connection for URI: %s", uri)
		return
	}
	if diagnostics == nil {
		diagnostics = []Diagnostic{}
	}

	params := PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}
	if version >= 0 {
		params.Version = &version
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		log.Printf("Error marshalling diagnostics params for %s: %v", uri, err)
		return
	}
	notification := &jsonrpc2.NotificationMessage{
		JSONRPC: jsonrpc2.Version,
		Method:  MethodTextDocumentPublishDiagnostics,
		Params:  rawParams,
	}
	if err := conn.Write(ctx, notification); err != nil {
		log.Printf("Error sending diagnostics notification for %s: %v", uri, err)
	}
}
