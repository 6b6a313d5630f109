package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/languagetool-lsp/protocol"
)

func TestLineTable(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		lines []Line
	}{
		{
			name: "trailing newline",
			text: "Hello\nWorld\n",
			lines: []Line{
				{Size{0, 0}, Size{6, 6}},
				{Size{6, 6}, Size{12, 12}},
				{Size{12, 12}, Size{12, 12}},
			},
		},
		{
			name: "no trailing newline",
			text: "Hello\nWorld\nFoo",
			lines: []Line{
				{Size{0, 0}, Size{6, 6}},
				{Size{6, 6}, Size{12, 12}},
				{Size{12, 12}, Size{15, 15}},
			},
		},
		{
			name: "crlf",
			text: "Hello\r\nWorld\r\nFoo",
			lines: []Line{
				{Size{0, 0}, Size{7, 7}},
				{Size{7, 7}, Size{14, 14}},
				{Size{14, 14}, Size{17, 17}},
			},
		},
		{
			name: "multibyte first line",
			text: "▲\nWorld\n",
			lines: []Line{
				{Size{0, 0}, Size{4, 2}},
				{Size{4, 2}, Size{10, 8}},
				{Size{10, 8}, Size{10, 8}},
			},
		},
		{
			name:  "empty",
			text:  "",
			lines: []Line{{Size{0, 0}, Size{0, 0}}},
		},
		{
			name: "only newline",
			text: "\n",
			lines: []Line{
				{Size{0, 0}, Size{1, 1}},
				{Size{1, 1}, Size{1, 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := New(tt.text)
			require.Equal(t, tt.lines, src.Lines())
			for i := 0; i+1 < len(src.Lines()); i++ {
				assert.Equal(t, src.Lines()[i].End, src.Lines()[i+1].Start)
			}
		})
	}
}

func TestOffsetPositionRoundTrip(t *testing.T) {
	// 𝄞 is outside the BMP: 4 bytes, 2 UTF-16 units.
	src := New("a𝄞b\ncafé\nend")
	for b := range src.Text() {
		// Every character boundary must round-trip exactly.
		pos, ok := src.PositionOf(b)
		require.True(t, ok, "offset %d", b)
		off, ok := src.OffsetOf(pos)
		require.True(t, ok, "offset %d", b)
		assert.Equal(t, b, off, "offset %d", b)
	}

	// The surrogate pair counts 2 UTF-16 units but 4 bytes.
	pos, ok := src.PositionOf(5) // after 𝄞
	require.True(t, ok)
	assert.Equal(t, protocol.Position{Line: 0, Character: 3}, pos)
}

func TestPositionOfEnd(t *testing.T) {
	src := New("Hello\nWorld")
	pos, ok := src.PositionOf(len(src.Text()))
	require.True(t, ok)
	assert.Equal(t, protocol.Position{Line: 2, Character: 5}, pos)

	_, ok = src.PositionOf(len(src.Text()) + 1)
	assert.False(t, ok)
}

func TestOffsetOfClamps(t *testing.T) {
	src := New("ab\ncd\n")

	off, ok := src.OffsetOf(protocol.Position{Line: 1, Character: 99})
	require.True(t, ok)
	assert.Equal(t, 6, off) // clamped to the end of "cd\n"

	_, ok = src.OffsetOf(protocol.Position{Line: 9, Character: 0})
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	src := New("Teh cat sat.\n")
	src.Replace(0, 3, "The")
	assert.Equal(t, "The cat sat.\n", src.Text())
	require.Equal(t, 2, src.LineCount())
	assert.Equal(t, 13, src.Lines()[0].End.Byte)

	src.Replace(4, 7, "dog and cat")
	assert.Equal(t, "The dog and cat sat.\n", src.Text())

	// Splicing in a newline must grow the table.
	src.Replace(3, 4, "\n")
	assert.Equal(t, "The\ndog and cat sat.\n", src.Text())
	assert.Equal(t, 3, src.LineCount())
}

func TestLineRange(t *testing.T) {
	src := New("one\ntwo\nthree")

	l, text, ok := src.LineRange(0, 2)
	require.True(t, ok)
	assert.Equal(t, "one\ntwo\n", text)
	assert.Equal(t, 0, l.Start.Byte)
	assert.Equal(t, 8, l.End.Byte)

	_, _, ok = src.LineRange(1, 1)
	assert.False(t, ok, "empty interval")
	_, _, ok = src.LineRange(0, 4)
	assert.False(t, ok, "past the last line")
}

func TestUTF16ToByte(t *testing.T) {
	assert.Equal(t, 0, UTF16ToByte("héllo", 0))
	assert.Equal(t, 3, UTF16ToByte("héllo", 2))
	assert.Equal(t, 6, UTF16ToByte("héllo", 99))
	// Full surrogate pair is consumed as one character.
	assert.Equal(t, 4, UTF16ToByte("𝄞x", 2))
	assert.Equal(t, 0, UTF16ToByte("𝄞x", 1))
	assert.Equal(t, 5, UTF16ToByte("𝄞x", 3))
}
