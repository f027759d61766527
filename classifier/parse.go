package classifier

import (
	"text2phenotype.com/anneval/metrics"
	"text2phenotype.com/anneval/types"
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRegex = regexp.MustCompile("```json\\s*|\\s*```")

// ParseResult is either a ParseSuccess or a ParseFailure.
type ParseResult interface {
	isParseResult()
}

// ParseSuccess holds the well-formed records of a reply. Discarded counts
// the records dropped for a missing keyword or an unknown tag.
type ParseSuccess struct {
	Mentions  []types.Mention
	Discarded int
}

// ParseFailure means no usable reply was obtained. Kind is one of the
// metrics outcome labels.
type ParseFailure struct {
	Kind   string
	Reason string
}

func (ParseSuccess) isParseResult() {}
func (ParseFailure) isParseResult() {}

// MentionsOf returns the mentions of a success and nil otherwise.
func MentionsOf(result ParseResult) []types.Mention {
	if success, ok := result.(ParseSuccess); ok {
		return success.Mentions
	}
	return nil
}

// ParseResponse extracts mentions from a raw model reply. Markdown fences are
// removed and the first well-formed JSON object is read. Records come from
// its "annotations" array, or "results" when that is absent or empty.
func ParseResponse(raw string) ParseResult {
	content := strings.TrimSpace(fenceRegex.ReplaceAllString(raw, ""))

	object, ok := firstObject(content)
	if !ok {
		return ParseFailure{Kind: metrics.OutcomeMalformed, Reason: "no JSON object in reply"}
	}

	records, ok := recordList(object, "annotations")
	if !ok || len(records) == 0 {
		if results, found := recordList(object, "results"); found {
			records, ok = results, true
		}
	}
	if !ok {
		return ParseFailure{Kind: metrics.OutcomeMalformed, Reason: "reply has no annotations array"}
	}

	return ParseRecords(records)
}

// ParseRecords keeps the {"keyword", "tag"} records with a non-blank keyword
// and a known tag and counts the rest as discarded.
func ParseRecords(records []json.RawMessage) ParseSuccess {
	success := ParseSuccess{Mentions: make([]types.Mention, 0, len(records))}
	for _, record := range records {
		mention, ok := parseRecord(record)
		if !ok {
			success.Discarded++
			continue
		}
		success.Mentions = append(success.Mentions, mention)
	}
	return success
}

// firstObject decodes the first '{' in content that starts a complete JSON
// object. Trailing text after the object is ignored.
func firstObject(content string) (map[string]json.RawMessage, bool) {
	for i := 0; i < len(content); i++ {
		if content[i] != '{' {
			continue
		}
		var object map[string]json.RawMessage
		decoder := json.NewDecoder(strings.NewReader(content[i:]))
		if err := decoder.Decode(&object); err == nil {
			return object, true
		}
	}
	return nil, false
}

func recordList(object map[string]json.RawMessage, key string) ([]json.RawMessage, bool) {
	raw, found := object[key]
	if !found {
		return nil, false
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func parseRecord(record json.RawMessage) (types.Mention, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return types.Mention{}, false
	}

	var keyword, tagName string
	if err := json.Unmarshal(fields["keyword"], &keyword); err != nil {
		return types.Mention{}, false
	}
	if err := json.Unmarshal(fields["tag"], &tagName); err != nil {
		return types.Mention{}, false
	}
	if strings.TrimSpace(keyword) == "" {
		return types.Mention{}, false
	}
	tag, ok := types.ParseTag(tagName)
	if !ok {
		return types.Mention{}, false
	}
	return types.Mention{Keyword: keyword, Tag: tag}, true
}
