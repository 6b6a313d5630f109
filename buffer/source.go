package buffer

import (
	"strings"

	"github.com/akhenakh/languagetool-lsp/protocol"
)

// Source holds the text of one open document together with a per-line
// table of cumulative sizes, so byte offsets and UTF-16 line/column
// positions can be converted in either direction.
type Source struct {
	text string
	// Line ranges as (start, end) measured from the beginning of the
	// text. The end of each line includes its terminator, so
	// lines[i].End == lines[i+1].Start always holds. A text ending in a
	// terminator gets one extra empty trailing line.
	lines []Line
}

// Line is the location of a single line, terminator included.
type Line struct {
	Start, End Size
}

// New builds a Source and its line table from text.
func New(text string) *Source {
	s := &Source{text: text}
	s.computeLines()
	return s
}

func (s *Source) computeLines() {
	s.lines = s.lines[:0]
	last := Size{}
	for {
		nl := strings.IndexByte(s.text[last.Byte:], '\n')
		if nl < 0 {
			break
		}
		end := last.Add(SizeOf(s.text[last.Byte : last.Byte+nl+1]))
		s.lines = append(s.lines, Line{Start: last, End: end})
		last = end
	}
	if last.Byte < len(s.text) {
		end := last.Add(SizeOf(s.text[last.Byte:]))
		s.lines = append(s.lines, Line{Start: last, End: end})
		last = end
	}
	// A trailing terminator (or an empty text) leaves one empty line
	// past the last terminator.
	if strings.HasSuffix(s.text, "\n") || len(s.text) == 0 {
		s.lines = append(s.lines, Line{Start: last, End: last})
	}
}

// Text returns the full document content.
func (s *Source) Text() string {
	return s.text
}

// LineCount returns the number of lines in the table.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// Lines returns the line table.
func (s *Source) Lines() []Line {
	return s.lines
}

// LineText returns the content of line i, terminator included.
func (s *Source) LineText(i int) (string, bool) {
	if i < 0 || i >= len(s.lines) {
		return "", false
	}
	l := s.lines[i]
	return s.text[l.Start.Byte:l.End.Byte], true
}

// LineRange returns the covering location and text of the half-open line
// interval [start, end).
func (s *Source) LineRange(start, end int) (Line, string, bool) {
	if start < 0 || end <= start || end > len(s.lines) {
		return Line{}, "", false
	}
	l := Line{Start: s.lines[start].Start, End: s.lines[end-1].End}
	return l, s.text[l.Start.Byte:l.End.Byte], true
}

// Replace splices text into the byte range [start, end) and rebuilds the
// line table. The full rebuild trades speed for correctness; documents are
// editor sized, not log sized.
func (s *Source) Replace(start, end int, text string) {
	s.text = s.text[:start] + text + s.text[end:]
	s.computeLines()
}

// OffsetOf converts a UTF-16 line/column position to a byte offset.
// It reports false when the line is out of bounds. A column past the end
// of the line clamps to the line's last character boundary.
func (s *Source) OffsetOf(pos protocol.Position) (int, bool) {
	if int(pos.Line) >= len(s.lines) {
		return 0, false
	}
	l := s.lines[pos.Line]
	line := s.text[l.Start.Byte:l.End.Byte]
	return l.Start.Byte + UTF16ToByte(line, int(pos.Character)), true
}

// PositionOf converts a byte offset to a UTF-16 line/column position.
// It reports false when offset is past the end of the text. An offset of
// exactly the text length yields a synthetic one-past-last-line position.
func (s *Source) PositionOf(offset int) (protocol.Position, bool) {
	if offset > len(s.text) {
		return protocol.Position{}, false
	}
	if offset == len(s.text) {
		var width int
		if n := len(s.lines); n > 0 {
			last := s.lines[n-1]
			width = last.End.UTF16 - last.Start.UTF16
		}
		return protocol.Position{
			Line:      uint(len(s.lines)),
			Character: uint(width),
		}, true
	}
	for i, l := range s.lines {
		if offset >= l.Start.Byte && offset < l.End.Byte {
			prefix := s.text[l.Start.Byte:offset]
			return protocol.Position{
				Line:      uint(i),
				Character: uint(SizeOf(prefix).UTF16),
			}, true
		}
	}
	return protocol.Position{}, false
}
