package buffer

import "unicode/utf8"

// Size measures a slice of text in both coordinate systems at once:
// UTF-8 bytes (native string indexing) and UTF-16 code units (editor
// protocol columns).
type Size struct {
	Byte  int
	UTF16 int
}

// SizeOf measures s.
func SizeOf(s string) Size {
	units := 0
	for _, r := range s {
		units += utf16Len(r)
	}
	return Size{Byte: len(s), UTF16: units}
}

// Add returns the component-wise sum of s and o.
func (s Size) Add(o Size) Size {
	return Size{Byte: s.Byte + o.Byte, UTF16: s.UTF16 + o.UTF16}
}

// Sub returns the component-wise difference of s and o.
func (s Size) Sub(o Size) Size {
	return Size{Byte: s.Byte - o.Byte, UTF16: s.UTF16 - o.UTF16}
}

// utf16Len returns the number of UTF-16 code units needed to encode r.
func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2 // surrogate pair
	}
	return 1
}

// UTF16ToByte converts a UTF-16 code unit offset into s to a byte offset.
// The scan stops at the first character boundary at or past utf16Off, so a
// column inside a surrogate pair or beyond the end of s clamps to the last
// boundary reached instead of overshooting.
func UTF16ToByte(s string, utf16Off int) int {
	bytes, units := 0, 0
	for _, r := range s {
		if units >= utf16Off {
			break
		}
		bytes += utf8.RuneLen(r)
		units += utf16Len(r)
	}
	return bytes
}

// ByteToUTF16 converts a byte offset into s to a UTF-16 code unit offset.
// An offset inside a multi-byte character counts the whole character.
func ByteToUTF16(s string, byteOff int) int {
	units := 0
	for i, r := range s {
		if i >= byteOff {
			break
		}
		units += utf16Len(r)
	}
	return units
}
