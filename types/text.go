package types

import (
	"sort"
	"unicode/utf8"
)

// Text is an immutable document buffer addressed by rune offsets. Regular
// expressions report byte offsets, so Text keeps the byte position of every
// rune to translate between the two.
type Text struct {
	value   string
	offsets []int
}

func NewText(value string) Text {
	offsets := make([]int, 0, utf8.RuneCountInString(value)+1)
	for i := range value {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(value))
	return Text{value: value, offsets: offsets}
}

func (text Text) String() string {
	return text.value
}

// Len is the length in runes.
func (text Text) Len() int {
	if len(text.offsets) == 0 {
		return 0
	}
	return len(text.offsets) - 1
}

// ByteOffset converts a rune offset, clamped to [0, Len()], to a byte offset.
func (text Text) ByteOffset(runeOffset int) int {
	if len(text.offsets) == 0 || runeOffset <= 0 {
		return 0
	}
	if runeOffset >= len(text.offsets) {
		return len(text.value)
	}
	return text.offsets[runeOffset]
}

// RuneOffset converts a byte offset that starts a rune (or equals the byte
// length) into a rune offset.
func (text Text) RuneOffset(byteOffset int) int {
	if len(text.offsets) == 0 {
		return 0
	}
	return sort.SearchInts(text.offsets, byteOffset)
}

// Slice returns the text between two rune offsets, clamped to the buffer.
func (text Text) Slice(start int, end int) string {
	if end < start {
		return ""
	}
	return text.value[text.ByteOffset(start):text.ByteOffset(end)]
}

func (text Text) SpanText(span Span) string {
	return text.Slice(span.Start, span.End)
}
