package types

import (
	"fmt"
)

// Span is a tagged half-open [Start, End) interval of rune offsets into a
// document text.
type Span struct {
	Tag   Tag `json:"tag"`
	Start int `json:"start"`
	End   int `json:"end"`
}

func (span Span) Len() int {
	return span.End - span.Start
}

// Valid reports whether the span is non-empty and fits a text of textLen runes.
func (span Span) Valid(textLen int) bool {
	return span.Start >= 0 && span.Start < span.End && span.End <= textLen
}

// Overlaps is true for spans of the same tag whose ranges intersect.
func (span Span) Overlaps(other Span) bool {
	return span.Tag == other.Tag && RangesOverlap(span, other)
}

func RangesOverlap(a Span, b Span) bool {
	return a.Start < b.End && b.Start < a.End
}

func (span Span) String() string {
	return fmt.Sprintf("%s[%d~%d]", span.Tag.Name(), span.Start, span.End)
}
