package pipeline

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/logger"
	"text2phenotype.com/anneval/metrics"
	"text2phenotype.com/anneval/types"
	"text2phenotype.com/anneval/utils"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultWorkers = 4

// Runner evaluates documents under a set of conditions. Each document is
// classified once per distinct model setup; the conditions sharing a model
// reuse that reply.
type Runner struct {
	classifier *classifier.Classifier
	evaluators []*Evaluator
	workers    int
	metrics    metrics.Collector
	logger     zerolog.Logger
}

type RunnerOption func(*Runner)

func WithWorkers(workers int) RunnerOption {
	return func(runner *Runner) {
		if workers > 0 {
			runner.workers = workers
		}
	}
}

func WithCollector(collector metrics.Collector) RunnerOption {
	return func(runner *Runner) {
		runner.metrics = collector
	}
}

func NewRunner(clf *classifier.Classifier, configs []types.Configuration, opts ...RunnerOption) (*Runner, error) {
	if len(configs) == 0 {
		return nil, errors.New("no evaluation conditions")
	}
	runner := &Runner{
		classifier: clf,
		workers:    DefaultWorkers,
		metrics:    metrics.NewNoopCollector(),
		logger:     logger.NewLogger("Evaluation runner"),
	}
	for _, cfg := range configs {
		evaluator, err := NewEvaluator(cfg)
		if err != nil {
			return nil, err
		}
		runner.evaluators = append(runner.evaluators, evaluator)
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

func (runner *Runner) Configurations() []types.Configuration {
	configs := make([]types.Configuration, len(runner.evaluators))
	for i, evaluator := range runner.evaluators {
		configs[i] = evaluator.Configuration()
	}
	return configs
}

// Run evaluates docs with a bounded number of workers. Documents left over
// when ctx is cancelled are not evaluated and the report is marked
// incomplete.
func (runner *Runner) Run(ctx context.Context, docs []corpus.Document) Report {
	runID := uuid.NewString()
	runLogger := runner.logger.With().Str("run_id", runID).Logger()
	runLogger.Info().
		Int("documents", len(docs)).
		Int("conditions", len(runner.evaluators)).
		Int("workers", runner.workers).
		Msg("Starting evaluation run")

	report := NewReport(runID, runner.Configurations())
	perDocument := make([][]DocumentResult, len(docs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runner.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perDocument[i] = runner.EvaluateDocument(ctx, runID, docs[i])
			}
		}()
	}

feed:
	for i := range docs {
		if ctx.Err() != nil {
			report.Incomplete = true
			break
		}
		select {
		case <-ctx.Done():
			report.Incomplete = true
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, results := range perDocument {
		if results == nil {
			continue
		}
		report.Add(results)
	}
	report.FinishedAt = time.Now().UTC()

	runLogger.Info().
		Bool("incomplete", report.Incomplete).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Finished evaluation run")
	return report
}

// EvaluateDocument returns one result per condition, in condition order.
func (runner *Runner) EvaluateDocument(ctx context.Context, runID string, doc corpus.Document) []DocumentResult {
	docLogger := logger.ForDocument(runner.logger, runID, doc.Name)
	classified := make(map[classifier.Params]classifier.ParseResult)

	results := make([]DocumentResult, len(runner.evaluators))
	for i, evaluator := range runner.evaluators {
		results[i] = runner.evaluate(ctx, evaluator, doc, classified)

		result := results[i]
		if result.Error != "" {
			docLogger.Error().Str("condition", result.Condition).Str("error", result.Error).Msg("Document evaluation failed")
			continue
		}
		runner.metrics.ObserveDocument(result.Condition, result.Negation.Suppressed, result.Negation.SuppressedCorrect)
		docLogger.Debug().
			Str("condition", result.Condition).
			Int("tp", result.Score.TP).
			Int("fp", result.Score.FP).
			Int("fn", result.Score.FN).
			Int("suppressed", result.Negation.Suppressed).
			Msg("Document evaluated")
	}
	return results
}

func (runner *Runner) evaluate(ctx context.Context, evaluator *Evaluator, doc corpus.Document, classified map[classifier.Params]classifier.ParseResult) (result DocumentResult) {
	var err error
	defer func() {
		if err != nil {
			result = DocumentResult{
				Document:  doc.Name,
				Condition: evaluator.Configuration().Name,
				Error:     err.Error(),
			}
		}
	}()
	defer utils.RecoverWithError(&err)

	params := evaluator.ClassifierParams()
	reply, ok := classified[params]
	if !ok {
		reply = runner.classifier.Classify(ctx, params, doc.Text.String())
		classified[params] = reply
	}
	return evaluator.Evaluate(doc, reply)
}
