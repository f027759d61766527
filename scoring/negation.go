package scoring

import (
	"text2phenotype.com/anneval/types"
)

// NegationDiagnostics describes what the negation filter removed. It is kept
// apart from the match counts.
type NegationDiagnostics struct {
	Suppressed        int `json:"suppressed_count"`
	SuppressedCorrect int `json:"suppressed_correct_count"`
}

func (d NegationDiagnostics) Add(other NegationDiagnostics) NegationDiagnostics {
	return NegationDiagnostics{
		Suppressed:        d.Suppressed + other.Suppressed,
		SuppressedCorrect: d.SuppressedCorrect + other.SuppressedCorrect,
	}
}

// DiagnoseNegation counts suppressed spans, and those of them that overlap a
// gold annotation of the same tag marked as negated.
func DiagnoseNegation(suppressed []types.Span, goldNegated []types.Span) NegationDiagnostics {
	diagnostics := NegationDiagnostics{Suppressed: len(suppressed)}
	for _, span := range suppressed {
		for _, gold := range goldNegated {
			if span.Overlaps(gold) {
				diagnostics.SuppressedCorrect++
				break
			}
		}
	}
	return diagnostics
}
