package lookup

import (
	"text2phenotype.com/anneval/types"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func TestLocate(t *testing.T) {
	t.Run("Whitespace normalized", testLocateWhitespace)
	t.Run("Case insensitive", testLocateCase)
	t.Run("Metacharacters are literal", testLocateMetacharacters)
	t.Run("All occurrences in order", testLocateAllOccurrences)
	t.Run("Not found and blank keywords", testLocateNothing)
	t.Run("Rune offsets", testLocateRuneOffsets)
	t.Run("Soundness", testLocateSoundness)
}

func testLocateWhitespace(t *testing.T) {
	for _, raw := range []string{"chest\npain", "chest   pain", "chest\tpain", "chest \r\n pain", "chest pain"} {
		text := types.NewText("Reports " + raw + " today")
		spans := Locate("chest pain", text)
		require.Len(t, spans, 1, "text %q", raw)
		require.Equal(t, 8, spans[0].Start)
		require.Equal(t, raw, text.SpanText(spans[0]))
	}
}

func testLocateCase(t *testing.T) {
	text := types.NewText("CHEST PAIN and Chest pain")
	spans := Locate("chest Pain", text)
	require.Equal(t, []types.Span{{Start: 0, End: 10}, {Start: 15, End: 25}}, spans)
}

func testLocateMetacharacters(t *testing.T) {
	text := types.NewText("Given mRNA-1273 (Moderna) dose; also J&J.")
	spans := Locate("mRNA-1273 (Moderna)", text)
	require.Len(t, spans, 1)
	require.Equal(t, "mRNA-1273 (Moderna)", text.SpanText(spans[0]))

	require.Empty(t, Locate("a.c", types.NewText("abc")))
	require.Len(t, Locate("J&J.", text), 1)
	require.Empty(t, Locate("fever|cough", types.NewText("fever and cough")))
}

func testLocateAllOccurrences(t *testing.T) {
	text := types.NewText("fever, then fever again; FEVER")
	spans := Locate("fever", text)
	require.Equal(t, []types.Span{{Start: 0, End: 5}, {Start: 12, End: 17}, {Start: 25, End: 30}}, spans)
}

func testLocateNothing(t *testing.T) {
	text := types.NewText("no relevant content")
	require.Empty(t, Locate("fever", text))
	require.Empty(t, Locate("", text))
	require.Empty(t, Locate("   ", text))
	require.Empty(t, Locate("fever", types.NewText("")))
}

func testLocateRuneOffsets(t *testing.T) {
	text := types.NewText("Température élevée: fever")
	spans := Locate("ÉLEVÉE", text)
	require.Equal(t, []types.Span{{Start: 12, End: 18}}, spans)
	spans = Locate("fever", text)
	require.Equal(t, []types.Span{{Start: 20, End: 25}}, spans)
	require.Equal(t, "fever", text.SpanText(spans[0]))
}

func testLocateSoundness(t *testing.T) {
	text := types.NewText("Sore throat.\nsore   THROAT and sore\tthroat; throat sore")
	for _, keyword := range []string{"sore throat", "throat", "SORE", "throat sore"} {
		spans := Locate(keyword, text)
		require.NotEmpty(t, spans)
		for _, span := range spans {
			require.True(t, span.Valid(text.Len()))
			require.Equal(t, normalize(keyword), normalize(text.SpanText(span)))
		}
	}
}

func TestLocateAll(t *testing.T) {
	text := types.NewText("Fever and cough, then fever.")
	mentions := []types.Mention{
		{Keyword: "fever", Tag: types.TagFever},
		{Keyword: "cough", Tag: types.TagCough},
		{Keyword: "cough", Tag: types.TagUnknown},
		{Keyword: "rash", Tag: types.TagOther},
	}
	spans := LocateAll(mentions, text)
	require.Equal(t, []types.Span{
		{Tag: types.TagFever, Start: 0, End: 5},
		{Tag: types.TagFever, Start: 22, End: 27},
		{Tag: types.TagCough, Start: 10, End: 15},
	}, spans)
}
