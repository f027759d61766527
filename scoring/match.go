package scoring

import (
	"text2phenotype.com/anneval/types"
)

// Pair is a true positive: a predicted span and the gold span it claimed.
type Pair struct {
	Predicted types.Span `json:"predicted"`
	Gold      types.Span `json:"gold"`
}

type MatchResult struct {
	Pairs          []Pair       `json:"true_positives"`
	FalsePositives []types.Span `json:"false_positives"`
	FalseNegatives []types.Span `json:"false_negatives"`
}

// Match pairs predicted spans with positive gold spans greedily: predicted
// spans are taken in order and each claims the first unclaimed gold span of
// the same tag that overlaps it. Every gold span is claimed at most once.
func Match(predicted []types.Span, goldPositive []types.Span) MatchResult {
	claimed := make([]bool, len(goldPositive))
	result := MatchResult{
		Pairs:          make([]Pair, 0, len(predicted)),
		FalsePositives: make([]types.Span, 0),
		FalseNegatives: make([]types.Span, 0),
	}

	for _, pred := range predicted {
		matched := false
		for i, gold := range goldPositive {
			if claimed[i] || !pred.Overlaps(gold) {
				continue
			}
			claimed[i] = true
			matched = true
			result.Pairs = append(result.Pairs, Pair{Predicted: pred, Gold: gold})
			break
		}
		if !matched {
			result.FalsePositives = append(result.FalsePositives, pred)
		}
	}

	for i, gold := range goldPositive {
		if !claimed[i] {
			result.FalseNegatives = append(result.FalseNegatives, gold)
		}
	}
	return result
}

func (result MatchResult) Counts() Counts {
	return Counts{
		TP: len(result.Pairs),
		FP: len(result.FalsePositives),
		FN: len(result.FalseNegatives),
	}
}
