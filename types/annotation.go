package types

import "strings"

// Mention is an unpositioned keyword the classifier attributed to a tag.
type Mention struct {
	Keyword string `json:"keyword"`
	Tag     Tag    `json:"tag"`
}

type Certainty string

const (
	CertaintyPositive Certainty = "positive"
	CertaintyNegated  Certainty = "negated"
	CertaintyPossible Certainty = "possible"
)

// ParseCertainty lowercases the label; a missing label means positive.
func ParseCertainty(label string) Certainty {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return CertaintyPositive
	}
	return Certainty(label)
}

// GoldAnnotation is a human-annotated span.
type GoldAnnotation struct {
	Span
	Certainty Certainty `json:"certainty"`
}

func (ann GoldAnnotation) IsNegated() bool {
	return ann.Certainty == CertaintyNegated
}

// SplitGold separates annotations scored as positive gold from the negated
// ones used to check the negation filter. Order is preserved.
func SplitGold(gold []GoldAnnotation) (positive []Span, negated []Span) {
	positive = make([]Span, 0, len(gold))
	for _, ann := range gold {
		if ann.IsNegated() {
			negated = append(negated, ann.Span)
			continue
		}
		positive = append(positive, ann.Span)
	}
	return positive, negated
}
