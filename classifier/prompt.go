package classifier

import (
	"text2phenotype.com/anneval/types"
	"fmt"
	"strings"
)

const promptTemplate = `You are a clinical text annotation assistant.
Identify medical concepts in the following text and classify them using ONLY these exact tag names: %[1]s

Tag definitions:
%[2]s

Return JSON only, no explanation. Format:
{"annotations": [{"keyword": "core clinical term", "tag": "TagName"}]}

Rules:
- ONLY use these exact tag names: %[1]s
- keyword must be the shortest core clinical term (1-3 words), NOT a full sentence or clause
- keyword must appear verbatim in the text (exact spelling, case-insensitive)
- Do NOT include IDs, offsets, or extra fields

Text:
%[3]s`

// BuildPrompt renders the annotation instructions for the first maxRunes
// runes of text. A non-positive maxRunes keeps the whole text.
func BuildPrompt(text string, maxRunes int) string {
	tags := types.Tags()
	descriptions := make([]string, len(tags))
	for i, tag := range tags {
		descriptions[i] = fmt.Sprintf("  - %s: %s", tag.Name(), tag.Description())
	}
	return fmt.Sprintf(promptTemplate,
		strings.Join(types.TagNames(), ", "),
		strings.Join(descriptions, "\n"),
		Truncate(text, maxRunes))
}

// Truncate cuts text to at most maxRunes runes.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i]
		}
		count++
	}
	return text
}
