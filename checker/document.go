// Package checker owns the server's language checking state: the open
// documents, their dirty ranges and reported matches, and the handlers
// that keep diagnostics synchronized with the edited buffers.
package checker

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/akhenakh/languagetool-lsp/buffer"
	"github.com/akhenakh/languagetool-lsp/dirty"
	"github.com/akhenakh/languagetool-lsp/ltapi"
	"github.com/akhenakh/languagetool-lsp/protocol"
	"github.com/akhenakh/languagetool-lsp/settings"
)

// DiagnosticSource tags every diagnostic published by this server, so
// code actions can tell our diagnostics from other servers'.
const DiagnosticSource = "languagetool-lsp"

// Document is the server-side state of one open editor document. All
// fields are guarded by mu; the mutex is released while a check request
// is on the wire so edits keep flowing in.
type Document struct {
	mu       sync.Mutex
	source   *buffer.Source
	language string
	version  int
	matches  []ltapi.Match // sorted by Start
	changed  *dirty.Tracker
}

func newDocument(text, language string, version int) *Document {
	d := &Document{
		source:   buffer.New(text),
		language: language,
		version:  version,
		changed:  dirty.NewTracker(),
	}
	d.markAllDirty()
	return d
}

// markAllDirty queues the whole document for the next check.
func (d *Document) markAllDirty() {
	n := d.source.LineCount()
	d.changed.AddChange(dirty.LineRange{Start: 0, End: n}, n)
}

// applyChange applies one content change. A change without a range
// replaces the whole document and invalidates everything; a ranged
// change splices the text, records the dirty lines, and shifts stored
// matches behind the edit.
func (d *Document) applyChange(change protocol.TextDocumentContentChangeEvent, version int) error {
	if change.Range == nil {
		d.source = buffer.New(change.Text)
		d.version = version
		d.matches = nil
		d.changed.Clear()
		d.markAllDirty()
		return nil
	}

	start, ok := d.source.OffsetOf(change.Range.Start)
	if !ok {
		return fmt.Errorf("change start out of bounds: line %d", change.Range.Start.Line)
	}
	end, ok := d.source.OffsetOf(change.Range.End)
	if !ok {
		return fmt.Errorf("change end out of bounds: line %d", change.Range.End.Line)
	}

	d.changed.AddChange(dirty.LineRange{
		Start: int(change.Range.Start.Line),
		End:   int(change.Range.End.Line) + 1,
	}, strings.Count(change.Text, "\n")+1)
	d.shiftMatches(end, len(change.Text)-(end-start))
	d.source.Replace(start, end, change.Text)
	d.version = version
	return nil
}

// shiftMatches moves match boundaries at or behind editEnd by shift, so
// verdicts outside the edited span keep pointing at the same text.
func (d *Document) shiftMatches(editEnd, shift int) {
	for i := range d.matches {
		if d.matches[i].Start >= editEnd {
			d.matches[i].Start += shift
		}
		if d.matches[i].End >= editEnd {
			d.matches[i].End += shift
		}
	}
}

// reconcile replaces every stored match touching the checked byte range
// [start, end] with the fresh results, keeping the slice sorted. A
// fresh verdict always wins over a stale one it overlaps.
func (d *Document) reconcile(start, end int, fresh []ltapi.Match) {
	kept := d.matches[:0]
	for _, m := range d.matches {
		if m.End < start || m.Start > end {
			kept = append(kept, m)
		}
	}
	d.matches = append(kept, fresh...)
	sort.Slice(d.matches, func(i, j int) bool {
		return d.matches[i].Start < d.matches[j].Start
	})
}

// dismiss drops every match touching [start, end] and reports how many
// were removed.
func (d *Document) dismiss(start, end int) int {
	kept := d.matches[:0]
	for _, m := range d.matches {
		if m.End < start || m.Start > end {
			kept = append(kept, m)
		}
	}
	removed := len(d.matches) - len(kept)
	d.matches = kept
	return removed
}

// removeWordMatches drops matches of the given category whose flagged
// text equals word, used after the word enters the dictionary.
func (d *Document) removeWordMatches(category, word string) {
	text := d.source.Text()
	kept := d.matches[:0]
	for _, m := range d.matches {
		if m.Category == category && m.Start >= 0 && m.End <= len(text) && text[m.Start:m.End] == word {
			continue
		}
		kept = append(kept, m)
	}
	d.matches = kept
}

// diagnostics renders the current match set for publication.
func (d *Document) diagnostics() []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(d.matches))
	for _, m := range d.matches {
		start, okStart := d.source.PositionOf(m.Start)
		end, okEnd := d.source.PositionOf(m.End)
		if !okStart || !okEnd {
			continue
		}
		data, err := json.Marshal(m.Replacements)
		if err != nil {
			data = nil
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: severityFor(m.Category),
			Source:   DiagnosticSource,
			Message:  fmt.Sprintf("%s\n\n%s\n%s > %s\n", m.Title, m.Message, m.Category, m.Rule),
			Data:     data,
		})
	}
	return diags
}

func severityFor(category string) protocol.DiagnosticSeverity {
	switch category {
	case "COLLOQUIALISMS", "REDUNDANCY", "STYLE", "SYNONYMS":
		return protocol.SeverityHint
	case "TYPOS":
		return protocol.SeverityWarning
	default:
		return protocol.SeverityInfo
	}
}

const spellingCategory = "TYPOS"

// filterDictionary drops spelling matches whose flagged text is in the
// active dictionary, before they ever enter the store.
func filterDictionary(matches []ltapi.Match, s *settings.Settings, src *buffer.Source) []ltapi.Match {
	text := src.Text()
	kept := matches[:0]
	for _, m := range matches {
		if m.Category == spellingCategory && m.Start >= 0 && m.End <= len(text) && s.HasWord(text[m.Start:m.End]) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}
