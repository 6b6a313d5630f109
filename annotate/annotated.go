// Package annotate builds the annotated-text payload the check API
// accepts: an ordered list of segments that are either literal text or
// markup with a plain-text interpretation.
package annotate

import (
	"encoding/json"
	"strings"
	"unicode"
)

// AnnotatedText is the payload for a single check call.
type AnnotatedText struct {
	segments []segment
}

// segment is one annotation entry. For a text segment the content lives
// in raw; for a markup segment raw holds the markup and interpretAs the
// plain text it should be read as.
type segment struct {
	raw         string
	markup      bool
	interpretAs string
}

// New returns an empty payload.
func New() *AnnotatedText {
	return &AnnotatedText{}
}

// AddText appends a literal text segment.
func (a *AnnotatedText) AddText(text string) {
	a.segments = append(a.segments, segment{raw: text})
}

// AddMarkup appends a markup segment interpreted as interpretAs.
// Reserved for non-plaintext formats; plain documents only emit text.
func (a *AnnotatedText) AddMarkup(markup, interpretAs string) {
	a.segments = append(a.segments, segment{raw: markup, markup: true, interpretAs: interpretAs})
}

// Parts returns the raw content of every segment in order.
func (a *AnnotatedText) Parts() []string {
	parts := make([]string, len(a.segments))
	for i, s := range a.segments {
		parts[i] = s.raw
	}
	return parts
}

// Content returns the concatenated raw content. Offsets reported by the
// check service index into this string (in UTF-16 units).
func (a *AnnotatedText) Content() string {
	var b strings.Builder
	for _, s := range a.segments {
		b.WriteString(s.raw)
	}
	return b.String()
}

// Len returns the total raw byte length of the payload.
func (a *AnnotatedText) Len() int {
	n := 0
	for _, s := range a.segments {
		n += len(s.raw)
	}
	return n
}

// rendered is the text a segment contributes once interpreted.
func (s segment) rendered() string {
	if s.markup {
		return s.interpretAs
	}
	return s.raw
}

// Optimize coalesces adjacent segments of the same kind, drops leading
// segments whose rendered content is all whitespace, and truncates
// trailing whitespace. It returns the number of raw bytes removed from
// the front; the caller must add that to the payload's base offset so
// issue offsets still map back to the source. Running Optimize twice
// yields the same payload as running it once.
func (a *AnnotatedText) Optimize() int {
	offset := 0
	old := a.segments
	a.segments = nil
	for _, seg := range old {
		if len(a.segments) == 0 {
			if strings.TrimSpace(seg.rendered()) == "" {
				offset += len(seg.raw)
				continue
			}
			a.segments = append(a.segments, seg)
			continue
		}
		last := &a.segments[len(a.segments)-1]
		switch {
		case !seg.markup && !last.markup:
			last.raw += seg.raw
		case seg.markup && last.markup && seg.interpretAs == "" && last.interpretAs == "":
			last.raw += seg.raw
		default:
			a.segments = append(a.segments, seg)
		}
	}
	for len(a.segments) > 0 {
		last := &a.segments[len(a.segments)-1]
		if last.markup {
			trimmed := strings.TrimRightFunc(last.interpretAs, unicode.IsSpace)
			if trimmed == "" {
				a.segments = a.segments[:len(a.segments)-1]
				continue
			}
			last.interpretAs = trimmed
		} else {
			trimmed := strings.TrimRightFunc(last.raw, unicode.IsSpace)
			if trimmed == "" {
				a.segments = a.segments[:len(a.segments)-1]
				continue
			}
			last.raw = trimmed
		}
		break
	}
	return offset
}

// MarshalJSON renders the wire form the check API expects:
// {"annotation":[{"text":...} | {"markup":...,"interpretAs":...}]}.
func (a *AnnotatedText) MarshalJSON() ([]byte, error) {
	type textJSON struct {
		Text string `json:"text"`
	}
	type markupJSON struct {
		Markup      string `json:"markup"`
		InterpretAs string `json:"interpretAs,omitempty"`
	}
	entries := make([]any, len(a.segments))
	for i, s := range a.segments {
		if s.markup {
			entries[i] = markupJSON{Markup: s.raw, InterpretAs: s.interpretAs}
		} else {
			entries[i] = textJSON{Text: s.raw}
		}
	}
	return json.Marshal(map[string][]any{"annotation": entries})
}
