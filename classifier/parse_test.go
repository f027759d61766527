package classifier

import (
	"text2phenotype.com/anneval/metrics"
	"text2phenotype.com/anneval/types"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		mentions  []types.Mention
		discarded int
	}{
		{
			name:     "plain object",
			raw:      `{"annotations": [{"keyword": "fever", "tag": "Fever"}]}`,
			mentions: []types.Mention{{Keyword: "fever", Tag: types.TagFever}},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"annotations\": [{\"keyword\": \"chills\", \"tag\": \"Chill\"}]}\n```",
			mentions: []types.Mention{{Keyword: "chills", Tag: types.TagChill}},
		},
		{
			name:     "prose around object",
			raw:      `Sure! Here you go: {"annotations": [{"keyword": "cough", "tag": "Cough"}]} Hope it helps {`,
			mentions: []types.Mention{{Keyword: "cough", Tag: types.TagCough}},
		},
		{
			name:     "results key",
			raw:      `{"results": [{"keyword": "nausea", "tag": "Nausea"}]}`,
			mentions: []types.Mention{{Keyword: "nausea", Tag: types.TagNausea}},
		},
		{
			name:     "empty annotations fall back to results",
			raw:      `{"annotations": [], "results": [{"keyword": "nausea", "tag": "Nausea"}]}`,
			mentions: []types.Mention{{Keyword: "nausea", Tag: types.TagNausea}},
		},
		{
			name: "bad records discarded",
			raw: `{"annotations": [
				{"keyword": "fever", "tag": "Fever"},
				{"keyword": "", "tag": "Fever"},
				{"keyword": "   ", "tag": "Cough"},
				{"keyword": 3, "tag": "Fever"},
				{"keyword": "rash", "tag": "Rash"},
				{"keyword": "rash"},
				"fever",
				{"keyword": "sore throat", "tag": "Sore_throat", "start": 4}
			]}`,
			mentions: []types.Mention{
				{Keyword: "fever", Tag: types.TagFever},
				{Keyword: "sore throat", Tag: types.TagSoreThroat},
			},
			discarded: 6,
		},
		{
			name:     "order and duplicates kept",
			raw:      `{"annotations": [{"keyword": "pain", "tag": "Pain"}, {"keyword": "fever", "tag": "Fever"}, {"keyword": "pain", "tag": "Pain"}]}`,
			mentions: []types.Mention{{Keyword: "pain", Tag: types.TagPain}, {Keyword: "fever", Tag: types.TagFever}, {Keyword: "pain", Tag: types.TagPain}},
		},
		{
			name:     "tag names are case sensitive",
			raw:      `{"annotations": [{"keyword": "fever", "tag": "fever"}]}`,
			mentions: []types.Mention{},
			discarded: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := ParseResponse(test.raw)
			success, ok := result.(ParseSuccess)
			require.True(t, ok, "expected success, got %#v", result)
			assert.Equal(t, test.mentions, success.Mentions)
			assert.Equal(t, test.discarded, success.Discarded)
		})
	}
}

func TestParseResponseFailure(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not find anything",
		`{"annotations": [`,
		`{"annotations": "fever"}`,
		`{"findings": []}`,
		`[{"keyword": "fever", "tag": "Fever"}]`,
	} {
		t.Run(raw, func(t *testing.T) {
			result := ParseResponse(raw)
			failure, ok := result.(ParseFailure)
			require.True(t, ok, "expected failure, got %#v", result)
			assert.Equal(t, metrics.OutcomeMalformed, failure.Kind)
			assert.NotEmpty(t, failure.Reason)
			assert.Nil(t, MentionsOf(result))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Patient reports fever.", 2000)

	assert.True(t, strings.HasPrefix(prompt, "You are a clinical text annotation assistant."))
	assert.True(t, strings.HasSuffix(prompt, "Text:\nPatient reports fever."))
	assert.Contains(t, prompt, strings.Join(types.TagNames(), ", "))
	assert.Contains(t, prompt, "  - Sore_throat: "+types.TagSoreThroat.Description())
	assert.Contains(t, prompt, `{"annotations": [{"keyword": "core clinical term", "tag": "TagName"}]}`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, "été", Truncate("été chaud", 3))

	long := strings.Repeat("é", 2500)
	assert.Equal(t, 2000, utf8.RuneCountInString(Truncate(long, 2000)))
}
