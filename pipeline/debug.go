package pipeline

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/negation"
	"text2phenotype.com/anneval/types"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	debugContextRunes = 30
	debugPredictRunes = 50
)

type DebugSpan struct {
	Span    types.Span `json:"span"`
	Text    string     `json:"text"`
	Context string     `json:"context,omitempty"`
	// Scope is the side of the span the negation cue was found on.
	Scope string `json:"scope,omitempty"`
}

type DebugPair struct {
	Predicted DebugSpan `json:"predicted"`
	Gold      DebugSpan `json:"gold"`
}

// DebugView lists where the predictions of one document went.
type DebugView struct {
	Document       string      `json:"document"`
	Condition      string      `json:"condition"`
	TruePositives  []DebugPair `json:"true_positives"`
	FalsePositives []DebugSpan `json:"false_positives"`
	FalseNegatives []DebugSpan `json:"false_negatives"`
	Suppressed     []DebugSpan `json:"suppressed"`
}

// NewDebugView explains result. The analyzer, when given, names the side of
// each suppressed span its negation cue was found on.
func NewDebugView(doc corpus.Document, result DocumentResult, analyzer negation.ContextAnalyzer) DebugView {
	text := doc.Text
	view := DebugView{
		Document:       result.Document,
		Condition:      result.Condition,
		TruePositives:  make([]DebugPair, 0, len(result.Match.Pairs)),
		FalsePositives: make([]DebugSpan, 0, len(result.Match.FalsePositives)),
		FalseNegatives: make([]DebugSpan, 0, len(result.Match.FalseNegatives)),
		Suppressed:     make([]DebugSpan, 0, len(result.Suppressed)),
	}
	for _, pair := range result.Match.Pairs {
		view.TruePositives = append(view.TruePositives, DebugPair{
			Predicted: DebugSpan{Span: pair.Predicted, Text: classifier.Truncate(text.SpanText(pair.Predicted), debugPredictRunes)},
			Gold:      DebugSpan{Span: pair.Gold, Text: text.SpanText(pair.Gold)},
		})
	}
	for _, span := range result.Match.FalsePositives {
		view.FalsePositives = append(view.FalsePositives, DebugSpan{
			Span:    span,
			Text:    text.SpanText(span),
			Context: spanContext(span, text),
		})
	}
	for _, span := range result.Match.FalseNegatives {
		view.FalseNegatives = append(view.FalseNegatives, DebugSpan{Span: span, Text: text.SpanText(span)})
	}
	for _, span := range result.Suppressed {
		debugSpan := DebugSpan{Span: span, Text: text.SpanText(span), Context: spanContext(span, text)}
		if analyzer != nil {
			_, scope := analyzer.Analyze(span, text)
			debugSpan.Scope = scope.Name()
		}
		view.Suppressed = append(view.Suppressed, debugSpan)
	}
	return view
}

// DebugDocument classifies doc and explains its evaluation under every
// condition of the runner.
func (runner *Runner) DebugDocument(ctx context.Context, doc corpus.Document) []DebugView {
	results := runner.EvaluateDocument(ctx, uuid.NewString(), doc)
	views := make([]DebugView, len(results))
	for i, result := range results {
		views[i] = NewDebugView(doc, result, runner.evaluators[i].Analyzer())
	}
	return views
}

func (view DebugView) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", view.Document, view.Condition)

	fmt.Fprintf(&b, "TP (%d):\n", len(view.TruePositives))
	for _, pair := range view.TruePositives {
		fmt.Fprintf(&b, "  [%s] pred=%q  gold=%q\n", pair.Predicted.Span.Tag, pair.Predicted.Text, pair.Gold.Text)
	}

	fmt.Fprintf(&b, "\nFP (%d):\n", len(view.FalsePositives))
	for _, span := range view.FalsePositives {
		fmt.Fprintf(&b, "  [%s] %q  ...%q...\n", span.Span.Tag, span.Text, span.Context)
	}

	fmt.Fprintf(&b, "\nFN (%d):\n", len(view.FalseNegatives))
	for _, span := range view.FalseNegatives {
		fmt.Fprintf(&b, "  [%s] %q\n", span.Span.Tag, span.Text)
	}

	if len(view.Suppressed) > 0 {
		fmt.Fprintf(&b, "\nSuppressed (%d):\n", len(view.Suppressed))
		for _, span := range view.Suppressed {
			fmt.Fprintf(&b, "  [%s] %q (%s)  ...%q...\n", span.Span.Tag, span.Text, span.Scope, span.Context)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func spanContext(span types.Span, text types.Text) string {
	window := text.Slice(span.Start-debugContextRunes, span.End+debugContextRunes)
	return strings.ReplaceAll(window, "\n", " ")
}
