package pipeline

import (
	"text2phenotype.com/anneval/scoring"
	"text2phenotype.com/anneval/types"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// ConditionReport aggregates one condition over the corpus. Score is the
// micro average of the summed document counts.
type ConditionReport struct {
	Condition          string              `json:"condition"`
	Configuration      types.Configuration `json:"configuration"`
	Corpus             scoring.Corpus      `json:"corpus"`
	Score              scoring.Score       `json:"score"`
	ClassifierFailures int                 `json:"classifier_failures"`
	FailedDocuments    []string            `json:"failed_documents"`
	Documents          []DocumentResult    `json:"documents"`
}

// Add folds a document result in. Documents that errored are listed but
// left out of the counts; classifier failures count as empty predictions.
func (report *ConditionReport) Add(result DocumentResult) {
	if result.Error != "" {
		report.FailedDocuments = append(report.FailedDocuments, result.Document)
		return
	}
	if result.ClassifierFailure != "" {
		report.ClassifierFailures++
	}
	report.Corpus.Add(result.Score.Counts, result.Negation)
	report.Score = report.Corpus.Score()
	report.Documents = append(report.Documents, result)
}

type Report struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Incomplete bool              `json:"incomplete"`
	Conditions []ConditionReport `json:"conditions"`
}

func NewReport(runID string, configs []types.Configuration) Report {
	report := Report{
		RunID:      runID,
		StartedAt:  time.Now().UTC(),
		Conditions: make([]ConditionReport, len(configs)),
	}
	for i, cfg := range configs {
		report.Conditions[i] = ConditionReport{
			Condition:       cfg.Name,
			Configuration:   cfg,
			FailedDocuments: []string{},
			Documents:       []DocumentResult{},
		}
	}
	return report
}

// Add takes the per-condition results of one document, in condition order.
func (report *Report) Add(results []DocumentResult) {
	for i := range report.Conditions {
		if i < len(results) {
			report.Conditions[i].Add(results[i])
		}
	}
}

// WriteDocuments prints the per-document scores of every condition.
func (report Report) WriteDocuments(w io.Writer) error {
	for _, condition := range report.Conditions {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", condition.Condition, strings.Repeat("=", 60)); err != nil {
			return err
		}
		for _, doc := range condition.Documents {
			line := fmt.Sprintf("  %s: P=%.2f R=%.2f F1=%.2f  (tp=%d fp=%d fn=%d)",
				doc.Document, doc.Score.Precision, doc.Score.Recall, doc.Score.F1,
				doc.Score.TP, doc.Score.FP, doc.Score.FN)
			if doc.ClassifierFailure != "" {
				line += "  [classifier failed]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		for _, name := range condition.FailedDocuments {
			if _, err := fmt.Fprintf(w, "  %s: not evaluated\n", name); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary prints one row per condition with the micro-averaged scores.
func (report Report) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "Condition\tP\tR\tF1\tTP\tFP\tFN\t"); err != nil {
		return err
	}
	for _, condition := range report.Conditions {
		score := condition.Score
		_, err := fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%d\t%d\t%d\t%s\n",
			condition.Condition, score.Precision, score.Recall, score.F1,
			score.TP, score.FP, score.FN, negationNote(condition.Corpus.Negation))
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func negationNote(diagnostics scoring.NegationDiagnostics) string {
	if diagnostics.Suppressed == 0 {
		return ""
	}
	return fmt.Sprintf("(filter suppressed %d, %d correct)", diagnostics.Suppressed, diagnostics.SuppressedCorrect)
}
