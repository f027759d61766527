package lookup

import (
	"text2phenotype.com/anneval/types"
	"regexp"
	"strings"
)

// whitespaceRun matches the gap between two keyword words. Unicode space
// separators are included so that non-breaking spaces in notes still match.
const whitespaceRun = `[\s\v\p{Z}]+`

// KeywordPattern compiles keyword into a case-insensitive literal pattern in
// which every run of whitespace matches one or more whitespace characters.
// A blank keyword has no pattern.
func KeywordPattern(keyword string) (*regexp.Regexp, bool) {
	words := strings.Fields(keyword)
	if len(words) == 0 {
		return nil, false
	}
	for i, word := range words {
		words[i] = regexp.QuoteMeta(word)
	}
	return regexp.MustCompile("(?i)" + strings.Join(words, whitespaceRun)), true
}

// Locate returns every non-overlapping occurrence of keyword in text, left to
// right. Returned spans carry TagUnknown; the caller attaches the tag.
func Locate(keyword string, text types.Text) []types.Span {
	pattern, ok := KeywordPattern(keyword)
	if !ok {
		return nil
	}
	matches := pattern.FindAllStringIndex(text.String(), -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]types.Span, 0, len(matches))
	for _, m := range matches {
		span := types.Span{
			Start: text.RuneOffset(m[0]),
			End:   text.RuneOffset(m[1]),
		}
		if span.Start < span.End {
			spans = append(spans, span)
		}
	}
	return spans
}

func LocateMention(mention types.Mention, text types.Text) []types.Span {
	spans := Locate(mention.Keyword, text)
	for i := range spans {
		spans[i].Tag = mention.Tag
	}
	return spans
}

// LocateAll expands mentions into raw candidate spans in mention order.
// Mentions with a tag outside the vocabulary are dropped.
func LocateAll(mentions []types.Mention, text types.Text) []types.Span {
	var candidates []types.Span
	for _, mention := range mentions {
		if !mention.Tag.Valid() {
			continue
		}
		candidates = append(candidates, LocateMention(mention, text)...)
	}
	return candidates
}
