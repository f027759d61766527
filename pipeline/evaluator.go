package pipeline

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/lookup"
	"text2phenotype.com/anneval/negation"
	"text2phenotype.com/anneval/scoring"
	"text2phenotype.com/anneval/types"
	"fmt"
	"time"
)

// DocumentResult is the outcome of one document under one condition.
type DocumentResult struct {
	Document  string                      `json:"document"`
	Condition string                      `json:"condition"`
	Score     scoring.Score               `json:"score"`
	Negation  scoring.NegationDiagnostics `json:"negation"`
	Mentions  []types.Mention             `json:"mentions"`
	// Predicted holds the deduplicated spans that reached the scorer.
	Predicted  []types.Span        `json:"predicted"`
	Suppressed []types.Span        `json:"suppressed"`
	Match      scoring.MatchResult `json:"match"`

	DiscardedMentions int    `json:"discarded_mentions"`
	SkippedGoldTags   int    `json:"skipped_gold_tags"`
	InvalidGoldSpans  int    `json:"invalid_gold_spans"`
	ClassifierFailure string `json:"classifier_failure,omitempty"`
	Error             string `json:"error,omitempty"`
}

func (result DocumentResult) Failed() bool {
	return result.ClassifierFailure != "" || result.Error != ""
}

// Evaluator scores documents under one condition. It holds no per-document
// state and is safe for concurrent use.
type Evaluator struct {
	config types.Configuration
	filter *negation.Filter
}

func NewEvaluator(cfg types.Configuration) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("condition %q: %w", cfg.Name, err)
	}
	evaluator := &Evaluator{config: cfg.WithDefaults()}
	if cfg.NegationFilter {
		filter, err := negation.NewFilter(cfg.Negation)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", cfg.Name, err)
		}
		evaluator.filter = filter
	}
	return evaluator, nil
}

func (evaluator *Evaluator) Configuration() types.Configuration {
	return evaluator.config
}

// Analyzer is the filter seen as a ContextAnalyzer, nil when filtering is off.
func (evaluator *Evaluator) Analyzer() negation.ContextAnalyzer {
	if evaluator.filter == nil {
		return nil
	}
	return evaluator.filter
}

func (evaluator *Evaluator) ClassifierParams() classifier.Params {
	return classifier.Params{
		Model:          evaluator.config.Model,
		MaxPromptChars: evaluator.config.MaxPromptChars,
		Timeout:        time.Duration(evaluator.config.TimeoutSeconds) * time.Second,
	}
}

// Evaluate resolves the classified mentions of doc into spans, filters
// negated ones when enabled and scores the rest against the positive gold.
// A classifier failure is scored as an empty prediction.
func (evaluator *Evaluator) Evaluate(doc corpus.Document, classified classifier.ParseResult) DocumentResult {
	result := DocumentResult{
		Document:         doc.Name,
		Condition:        evaluator.config.Name,
		Mentions:         []types.Mention{},
		SkippedGoldTags:  doc.SkippedTags,
		InvalidGoldSpans: doc.InvalidSpans,
	}
	switch classified := classified.(type) {
	case classifier.ParseSuccess:
		result.Mentions = classified.Mentions
		result.DiscardedMentions = classified.Discarded
	case classifier.ParseFailure:
		result.ClassifierFailure = classified.Reason
	}

	goldPositive, goldNegated := types.SplitGold(doc.Gold)

	predicted := lookup.Dedup(lookup.LocateAll(result.Mentions, doc.Text))
	suppressed := []types.Span{}
	if evaluator.filter != nil {
		predicted, suppressed = evaluator.filter.Apply(predicted, doc.Text)
		if suppressed == nil {
			suppressed = []types.Span{}
		}
	}

	result.Predicted = predicted
	result.Suppressed = suppressed
	result.Match = scoring.Match(predicted, goldPositive)
	result.Score = result.Match.Counts().Score()
	result.Negation = scoring.DiagnoseNegation(suppressed, goldNegated)
	return result
}
