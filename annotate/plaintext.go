package annotate

import (
	"fmt"
	"strings"

	"github.com/akhenakh/languagetool-lsp/buffer"
	"github.com/akhenakh/languagetool-lsp/dirty"
)

// Plaintext turns a dirty line range into a check payload. The range is
// extended to the enclosing paragraph (blank-line delimited) because
// sentence rules need the surrounding context; a truncated fragment
// produces wrong verdicts at its edges. The returned byte range covers
// the extracted text in the source; callers still need to apply the
// Optimize offset correction before using it as a base offset.
func Plaintext(src *buffer.Source, lines dirty.LineRange) (start, end int, annot *AnnotatedText, err error) {
	// A blank region has nothing to analyze.
	if l, text, ok := src.LineRange(lines.Start, lines.End); ok && strings.TrimSpace(text) == "" {
		return l.Start.Byte, l.End.Byte, New(), nil
	}

	// Walk backward to the paragraph start.
	for i := lines.Start - 1; i >= 0; i-- {
		line, ok := src.LineText(i)
		if !ok {
			return 0, 0, nil, fmt.Errorf("invalid line %d", i)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines.Start = i
	}
	// Walk forward to the paragraph end.
	for i := lines.End; i < src.LineCount(); i++ {
		line, ok := src.LineText(i)
		if !ok {
			return 0, 0, nil, fmt.Errorf("invalid line %d", i)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines.End = i + 1
	}

	l, text, ok := src.LineRange(lines.Start, lines.End)
	if !ok {
		return 0, 0, nil, fmt.Errorf("invalid line range %d..%d", lines.Start, lines.End)
	}

	annot = New()
	if strings.TrimSpace(text) != "" {
		annot.AddText(text)
	}
	return l.Start.Byte, l.End.Byte, annot, nil
}
