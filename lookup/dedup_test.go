package lookup

import (
	"text2phenotype.com/anneval/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"math/rand"
	"testing"
)

func TestDedup(t *testing.T) {
	t.Run("Earliest same-tag span wins", testDedupSameTag)
	t.Run("Different tags are independent", testDedupDifferentTags)
	t.Run("Ties keep input order", testDedupTies)
	t.Run("Touching spans do not overlap", testDedupTouching)
	t.Run("Idempotent without residual overlaps", testDedupProperties)
	t.Run("Input is not modified", testDedupInputUntouched)
}

func testDedupSameTag(t *testing.T) {
	spans := []types.Span{
		{Tag: types.TagFever, Start: 10, End: 15},
		{Tag: types.TagFever, Start: 5, End: 15},
		{Tag: types.TagFever, Start: 20, End: 25},
	}
	require.Equal(t, []types.Span{
		{Tag: types.TagFever, Start: 5, End: 15},
		{Tag: types.TagFever, Start: 20, End: 25},
	}, Dedup(spans))
}

func testDedupDifferentTags(t *testing.T) {
	spans := []types.Span{
		{Tag: types.TagPain, Start: 0, End: 10},
		{Tag: types.TagSoreThroat, Start: 0, End: 11},
	}
	require.Equal(t, spans, Dedup(spans))
}

func testDedupTies(t *testing.T) {
	spans := []types.Span{
		{Tag: types.TagPain, Start: 3, End: 5},
		{Tag: types.TagPain, Start: 3, End: 9},
	}
	require.Equal(t, spans[:1], Dedup(spans))
}

func testDedupTouching(t *testing.T) {
	spans := []types.Span{
		{Tag: types.TagPain, Start: 5, End: 9},
		{Tag: types.TagPain, Start: 0, End: 5},
	}
	require.Equal(t, []types.Span{spans[1], spans[0]}, Dedup(spans))
}

func randomSpans(r *rand.Rand, n int) []types.Span {
	tags := []types.Tag{types.TagFever, types.TagCough, types.TagPain}
	spans := make([]types.Span, n)
	for i := range spans {
		start := r.Intn(100)
		spans[i] = types.Span{Tag: tags[r.Intn(len(tags))], Start: start, End: start + 1 + r.Intn(15)}
	}
	return spans
}

func testDedupProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		once := Dedup(randomSpans(r, r.Intn(40)))
		twice := Dedup(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("dedup is not idempotent (-once +twice):\n%s", diff)
		}
		for i := range once {
			for j := i + 1; j < len(once); j++ {
				require.False(t, once[i].Overlaps(once[j]), "%s overlaps %s", once[i], once[j])
			}
		}
	}
}

func testDedupInputUntouched(t *testing.T) {
	spans := []types.Span{
		{Tag: types.TagFever, Start: 10, End: 15},
		{Tag: types.TagFever, Start: 0, End: 3},
	}
	original := append([]types.Span(nil), spans...)
	_ = Dedup(spans)
	require.Equal(t, original, spans)
}
