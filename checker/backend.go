package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/akhenakh/languagetool-lsp/annotate"
	"github.com/akhenakh/languagetool-lsp/buffer"
	"github.com/akhenakh/languagetool-lsp/dirty"
	"github.com/akhenakh/languagetool-lsp/jsonrpc2"
	"github.com/akhenakh/languagetool-lsp/ltapi"
	"github.com/akhenakh/languagetool-lsp/protocol"
	"github.com/akhenakh/languagetool-lsp/server"
	"github.com/akhenakh/languagetool-lsp/settings"
)

// ErrNotOpen is returned when a request names a document the server
// has not been told about.
var ErrNotOpen = errors.New("document not open")

// Commands handled through workspace/executeCommand.
const (
	CommandCheck           = "languagetool-lsp.check"
	CommandSynonyms        = "languagetool-lsp.synonyms"
	CommandIgnore          = "languagetool-lsp.ignore"
	CommandAddToDictionary = "languagetool-lsp.addToDictionary"
)

// Commands returns the command identifiers to advertise in the server
// capabilities.
func Commands() []string {
	return []string{CommandCheck, CommandSynonyms, CommandIgnore, CommandAddToDictionary}
}

// Backend ties the document store, the configuration and the remote
// client together behind the LSP handlers.
type Backend struct {
	logger *log.Logger
	client *ltapi.Client

	settingsMu sync.RWMutex
	settings   settings.Settings

	docMu     sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	debounceMu sync.Mutex
	debounce   map[protocol.DocumentURI]*time.Timer
}

func NewBackend(logger *log.Logger) *Backend {
	return &Backend{
		logger:    logger,
		client:    ltapi.NewClient(),
		settings:  settings.Default(),
		documents: make(map[protocol.DocumentURI]*Document),
		debounce:  make(map[protocol.DocumentURI]*time.Timer),
	}
}

// Register wires the backend's handlers into the server.
func (b *Backend) Register(srv *server.Server) error {
	handlers := map[string]any{
		protocol.MethodTextDocumentDidOpen:             b.HandleDidOpen,
		protocol.MethodTextDocumentDidChange:           b.HandleDidChange,
		protocol.MethodTextDocumentDidSave:             b.HandleDidSave,
		protocol.MethodTextDocumentDidClose:            b.HandleDidClose,
		protocol.MethodWorkspaceDidChangeConfiguration: b.HandleDidChangeConfiguration,
		protocol.MethodTextDocumentCodeAction:          b.HandleCodeAction,
		protocol.MethodWorkspaceExecuteCommand:         b.HandleExecuteCommand,
	}
	for method, h := range handlers {
		if err := srv.Register(method, h); err != nil {
			return fmt.Errorf("register %s: %w", method, err)
		}
	}
	return nil
}

func (b *Backend) currentSettings() settings.Settings {
	b.settingsMu.RLock()
	defer b.settingsMu.RUnlock()
	return b.settings.Clone()
}

func (b *Backend) document(uri protocol.DocumentURI) *Document {
	b.docMu.RLock()
	defer b.docMu.RUnlock()
	return b.documents[uri]
}

func (b *Backend) HandleDidOpen(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidOpenTextDocumentParams) error {
	td := params.TextDocument
	doc := newDocument(td.Text, td.LanguageID, td.Version)

	b.docMu.Lock()
	b.documents[td.URI] = doc
	b.docMu.Unlock()

	b.logger.Printf("opened %s (%s, version %d)", td.URI, td.LanguageID, td.Version)
	if b.currentSettings().AutoCheck {
		go b.checkDocument(context.Background(), conn, td.URI)
	}
	return nil
}

func (b *Backend) HandleDidChange(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := b.document(uri)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}

	doc.mu.Lock()
	for _, change := range params.ContentChanges {
		if err := doc.applyChange(change, params.TextDocument.Version); err != nil {
			doc.mu.Unlock()
			return err
		}
	}
	doc.mu.Unlock()

	s := b.currentSettings()
	if s.AutoCheck {
		b.scheduleCheck(conn, uri, time.Duration(s.AutoCheckDelay)*time.Millisecond)
	}
	return nil
}

func (b *Backend) HandleDidSave(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := b.document(uri)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}

	// The saved text is the ground truth. If the incremental state
	// drifted away from it, resynchronize and recheck everything.
	doc.mu.Lock()
	if params.Text != nil && *params.Text != doc.source.Text() {
		b.logger.Printf("document %s drifted out of sync, resynchronizing", uri)
		doc.source = buffer.New(*params.Text)
		doc.matches = nil
		doc.changed.Clear()
		doc.markAllDirty()
	}
	doc.mu.Unlock()

	go b.checkDocument(context.Background(), conn, uri)
	return nil
}

func (b *Backend) HandleDidClose(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	b.debounceMu.Lock()
	if timer, ok := b.debounce[uri]; ok {
		timer.Stop()
		delete(b.debounce, uri)
	}
	b.debounceMu.Unlock()

	b.docMu.Lock()
	delete(b.documents, uri)
	b.docMu.Unlock()

	// Clear any published diagnostics; the version no longer applies.
	protocol.SendDiagnostics(ctx, conn, uri, -1, nil)
	return nil
}

func (b *Backend) HandleDidChangeConfiguration(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidChangeConfigurationParams) error {
	s, err := settings.Decode(params.Settings)
	if err != nil {
		protocol.ShowNotification(ctx, conn, protocol.Error, err.Error())
		return err
	}

	b.settingsMu.Lock()
	// Keep the words already fetched until the next synchronization.
	s.RemoteDictionary = b.settings.RemoteDictionary
	b.settings = s
	b.settingsMu.Unlock()

	if s.SyncDictionary && s.HasCredentials() {
		go b.syncRemoteDictionary(context.Background(), conn)
	}
	return nil
}

// syncRemoteDictionary refreshes the cached copy of the user's words
// stored on the premium account.
func (b *Backend) syncRemoteDictionary(ctx context.Context, conn *jsonrpc2.Conn) {
	s := b.currentSettings()
	words, err := b.client.Words(ctx, &s)
	if err != nil {
		b.logger.Printf("dictionary sync failed: %v", err)
		protocol.ShowNotification(ctx, conn, protocol.Warning, fmt.Sprintf("dictionary sync failed: %v", err))
		return
	}

	b.settingsMu.Lock()
	b.settings.RemoteDictionary = words
	b.settingsMu.Unlock()
	b.logger.Printf("synchronized %d dictionary words", len(words))
}

// scheduleCheck arms (or re-arms) the debounce timer for uri.
func (b *Backend) scheduleCheck(conn *jsonrpc2.Conn, uri protocol.DocumentURI, delay time.Duration) {
	b.debounceMu.Lock()
	defer b.debounceMu.Unlock()

	if timer, ok := b.debounce[uri]; ok {
		timer.Stop()
	}
	b.debounce[uri] = time.AfterFunc(delay, func() {
		b.debounceMu.Lock()
		delete(b.debounce, uri)
		b.debounceMu.Unlock()
		b.checkDocument(context.Background(), conn, uri)
	})
}

// checkDocument runs one check cycle: it consumes the document's dirty
// ranges, checks each one remotely, and publishes the updated
// diagnostics. The document lock is dropped while a request is on the
// wire; a result computed against a version that changed meanwhile is
// discarded and its range re-marked, so the next cycle redoes it.
func (b *Backend) checkDocument(ctx context.Context, conn *jsonrpc2.Conn, uri protocol.DocumentURI) {
	doc := b.document(uri)
	if doc == nil {
		return
	}
	s := b.currentSettings()

	doc.mu.Lock()
	ranges := slices.Clone(doc.changed.Ranges())
	doc.changed.Clear()
	failed := false

	for _, lines := range ranges {
		start, end, annot, err := annotate.Plaintext(doc.source, lines)
		if err != nil {
			b.logger.Printf("cannot extract lines %d-%d of %s: %v", lines.Start, lines.End, uri, err)
			continue
		}
		start += annot.Optimize()
		if annot.Len() == 0 {
			continue
		}

		version := doc.version
		doc.mu.Unlock()
		matches, err := b.client.Check(ctx, annot, start, &s, doc.language)
		doc.mu.Lock()

		if err != nil {
			doc.changed.AddChange(lines, lines.Len())
			if !failed {
				failed = true
				b.logger.Printf("check of %s failed: %v", uri, err)
				protocol.ShowNotification(ctx, conn, protocol.Warning, checkFailureMessage(err))
			}
			continue
		}
		if doc.version != version {
			// The buffer moved under the request; the offsets are no
			// longer trustworthy.
			doc.changed.AddChange(lines, lines.Len())
			continue
		}

		matches = filterDictionary(matches, &s, doc.source)
		doc.reconcile(start, end, matches)
	}

	version := doc.version
	diags := doc.diagnostics()
	doc.mu.Unlock()

	if failed {
		// The dirty ranges were re-marked above; publishing now would
		// push a partial view, so wait for the retry.
		return
	}
	protocol.SendDiagnostics(ctx, conn, uri, version, diags)
}

func checkFailureMessage(err error) string {
	switch {
	case errors.Is(err, ltapi.ErrRetryLater):
		return "LanguageTool is overloaded, the check will be retried"
	case errors.Is(err, ltapi.ErrPremiumRequired):
		return "this LanguageTool feature requires a username and api_key"
	default:
		return fmt.Sprintf("LanguageTool check failed: %v", err)
	}
}

// commandParams is the argument payload attached to the commands this
// server publishes in its code actions.
type commandParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"text_document"`
	Range        protocol.Range                  `json:"range"`
}

func commandRef(title, command string, td protocol.TextDocumentIdentifier, rng protocol.Range) *protocol.Command {
	arg, err := json.Marshal(commandParams{TextDocument: td, Range: rng})
	if err != nil {
		return nil
	}
	return &protocol.Command{Title: title, Command: command, Arguments: []json.RawMessage{arg}}
}

func (b *Backend) HandleCodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	td := protocol.TextDocumentIdentifier{URI: params.TextDocument.URI}
	var actions []protocol.CodeAction

	for _, diag := range params.Context.Diagnostics {
		if diag.Source != DiagnosticSource {
			continue
		}

		var replacements []string
		if len(diag.Data) > 0 {
			if err := json.Unmarshal(diag.Data, &replacements); err != nil {
				b.logger.Printf("undecodable diagnostic data: %v", err)
			}
		}
		for _, r := range replacements {
			actions = append(actions, protocol.CodeAction{
				Title:       fmt.Sprintf("Replace with %q", r),
				Kind:        protocol.QuickFix,
				Diagnostics: []protocol.Diagnostic{diag},
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentURI][]protocol.TextEdit{
						params.TextDocument.URI: {{Range: diag.Range, NewText: r}},
					},
				},
			})
		}

		actions = append(actions, protocol.CodeAction{
			Title:       "Ignore issue",
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{diag},
			Command:     commandRef("Ignore issue", CommandIgnore, td, diag.Range),
		})
		if diag.Severity == protocol.SeverityWarning {
			actions = append(actions, protocol.CodeAction{
				Title:       "Add to dictionary",
				Kind:        protocol.QuickFix,
				Diagnostics: []protocol.Diagnostic{diag},
				Command:     commandRef("Add to dictionary", CommandAddToDictionary, td, diag.Range),
			})
		}
	}

	actions = append(actions, protocol.CodeAction{
		Title:   "Check Spelling",
		Kind:    protocol.Source,
		Command: commandRef("Check Spelling", CommandCheck, td, params.Range),
	})
	return actions, nil
}

func (b *Backend) HandleExecuteCommand(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.ExecuteCommandParams) (any, error) {
	if len(params.Arguments) == 0 {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "missing command arguments")
	}
	var args commandParams
	if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("invalid command arguments: %v", err))
	}

	switch params.Command {
	case CommandCheck:
		return nil, b.commandCheck(ctx, conn, args)
	case CommandSynonyms:
		return b.commandSynonyms(ctx, args)
	case CommandIgnore:
		return nil, b.commandIgnore(ctx, conn, args)
	case CommandAddToDictionary:
		return nil, b.commandAddToDictionary(ctx, conn, args)
	}
	return nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("unknown command %q", params.Command))
}

func (b *Backend) commandCheck(ctx context.Context, conn *jsonrpc2.Conn, args commandParams) error {
	doc := b.document(args.TextDocument.URI)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, args.TextDocument.URI)
	}

	lines := dirty.LineRange{
		Start: int(args.Range.Start.Line),
		End:   int(args.Range.End.Line) + 1,
	}
	doc.mu.Lock()
	doc.changed.AddChange(lines, lines.Len())
	doc.mu.Unlock()

	b.checkDocument(ctx, conn, args.TextDocument.URI)
	return nil
}

func (b *Backend) commandSynonyms(ctx context.Context, args commandParams) ([]string, error) {
	doc := b.document(args.TextDocument.URI)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, args.TextDocument.URI)
	}

	doc.mu.Lock()
	lineIdx := int(args.Range.Start.Line)
	lineText, ok := doc.source.LineText(lineIdx)
	startOff, okStart := doc.source.OffsetOf(args.Range.Start)
	endOff, okEnd := doc.source.OffsetOf(args.Range.End)
	var lineStart int
	if ok {
		lineStart = doc.source.Lines()[lineIdx].Start.Byte
	}
	doc.mu.Unlock()

	if !ok || !okStart || !okEnd {
		return nil, fmt.Errorf("selection out of bounds")
	}

	line := strings.TrimRight(lineText, "\r\n")
	start := min(max(startOff-lineStart, 0), len(line))
	end := min(max(endOff-lineStart, start), len(line))

	s := b.currentSettings()
	provider, ok := b.client.ProviderFor(s.Synonyms)
	if !ok {
		return nil, fmt.Errorf("no synonym service for language %q", s.Synonyms)
	}
	return provider.Synonyms(ctx, line, start, end)
}

func (b *Backend) commandIgnore(ctx context.Context, conn *jsonrpc2.Conn, args commandParams) error {
	doc := b.document(args.TextDocument.URI)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, args.TextDocument.URI)
	}

	doc.mu.Lock()
	start, okStart := doc.source.OffsetOf(args.Range.Start)
	end, okEnd := doc.source.OffsetOf(args.Range.End)
	if !okStart || !okEnd {
		doc.mu.Unlock()
		return fmt.Errorf("selection out of bounds")
	}
	removed := doc.dismiss(start, end)
	version := doc.version
	diags := doc.diagnostics()
	doc.mu.Unlock()

	if removed > 0 {
		protocol.SendDiagnostics(ctx, conn, args.TextDocument.URI, version, diags)
	}
	return nil
}

func (b *Backend) commandAddToDictionary(ctx context.Context, conn *jsonrpc2.Conn, args commandParams) error {
	doc := b.document(args.TextDocument.URI)
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, args.TextDocument.URI)
	}

	doc.mu.Lock()
	start, okStart := doc.source.OffsetOf(args.Range.Start)
	end, okEnd := doc.source.OffsetOf(args.Range.End)
	var word string
	if okStart && okEnd && start <= end {
		word = strings.TrimSpace(doc.source.Text()[start:end])
	}
	doc.mu.Unlock()

	if word == "" {
		return fmt.Errorf("no word selected")
	}

	b.settingsMu.Lock()
	if !slices.Contains(b.settings.Dictionary, word) {
		b.settings.Dictionary = append(b.settings.Dictionary, word)
	}
	s := b.settings.Clone()
	b.settingsMu.Unlock()

	if s.SyncDictionary && s.HasCredentials() {
		go func() {
			added, err := b.client.AddWord(context.Background(), &s, word)
			if err != nil {
				b.logger.Printf("cannot add %q to the remote dictionary: %v", word, err)
				protocol.ShowNotification(ctx, conn, protocol.Warning, fmt.Sprintf("cannot add %q to the remote dictionary: %v", word, err))
				return
			}
			if added {
				b.settingsMu.Lock()
				b.settings.RemoteDictionary = append(b.settings.RemoteDictionary, word)
				b.settingsMu.Unlock()
			}
		}()
	}

	// Retire the spelling matches the word just resolved in every open
	// document.
	b.docMu.RLock()
	docs := make(map[protocol.DocumentURI]*Document, len(b.documents))
	for uri, d := range b.documents {
		docs[uri] = d
	}
	b.docMu.RUnlock()

	for uri, d := range docs {
		d.mu.Lock()
		before := len(d.matches)
		d.removeWordMatches(spellingCategory, word)
		changed := len(d.matches) != before
		version := d.version
		diags := d.diagnostics()
		d.mu.Unlock()
		if changed {
			protocol.SendDiagnostics(ctx, conn, uri, version, diags)
		}
	}
	return nil
}
