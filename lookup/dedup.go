package lookup

import (
	"text2phenotype.com/anneval/types"
	"sort"
)

// Dedup keeps, scanning candidates by ascending start, every span that does
// not overlap an already kept span of the same tag. Ties on start keep input
// order. Spans of different tags never suppress each other.
func Dedup(spans []types.Span) []types.Span {
	sorted := make([]types.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	accepted := make([]types.Span, 0, len(sorted))
	acceptedByTag := make(map[types.Tag][]types.Span)
	for _, candidate := range sorted {
		if overlapsAny(candidate, acceptedByTag[candidate.Tag]) {
			continue
		}
		accepted = append(accepted, candidate)
		acceptedByTag[candidate.Tag] = append(acceptedByTag[candidate.Tag], candidate)
	}
	return accepted
}

func overlapsAny(span types.Span, others []types.Span) bool {
	for _, other := range others {
		if span.Overlaps(other) {
			return true
		}
	}
	return false
}
