package negation

import (
	"text2phenotype.com/anneval/types"
)

// ContextAnalyzer decides the polarity of a span from the text around it and
// reports the side the deciding cue was found on.
type ContextAnalyzer interface {
	Analyze(span types.Span, text types.Text) (types.Polarity, types.Scope)
	IsNegated(span types.Span, text types.Text) bool
}

var _ ContextAnalyzer = (*Filter)(nil)
