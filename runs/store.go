package runs

import (
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/redis"
	"text2phenotype.com/anneval/scoring"
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// ConditionState is the running micro aggregate of one condition.
type ConditionState struct {
	Corpus             scoring.Corpus `json:"corpus"`
	ClassifierFailures int            `json:"classifier_failures"`
	FailedDocuments    []string       `json:"failed_documents"`
}

// Run is the shared state of a distributed evaluation run. Workers fold
// their document results into it, so the corpus totals do not depend on
// which worker evaluated which document.
type Run struct {
	RunID      string                     `json:"run_id"`
	Expected   int                        `json:"expected_documents"`
	Conditions []string                   `json:"conditions"`
	States     map[string]*ConditionState `json:"states"`
	Processed  []string                   `json:"processed_documents"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

func (run Run) Status() Status {
	if run.Expected > 0 && len(run.Processed) >= run.Expected {
		return StatusCompleted
	}
	return StatusProcessing
}

// Report renders the aggregate in the shape of a local run report, without
// the per-document results.
func (run Run) Report() pipeline.Report {
	report := pipeline.Report{
		RunID:      run.RunID,
		StartedAt:  run.CreatedAt,
		FinishedAt: run.UpdatedAt,
		Incomplete: run.Status() != StatusCompleted,
		Conditions: make([]pipeline.ConditionReport, 0, len(run.Conditions)),
	}
	for _, condition := range run.Conditions {
		state, ok := run.States[condition]
		if !ok {
			state = &ConditionState{}
		}
		report.Conditions = append(report.Conditions, pipeline.ConditionReport{
			Condition:          condition,
			Corpus:             state.Corpus,
			Score:              state.Corpus.Score(),
			ClassifierFailures: state.ClassifierFailures,
			FailedDocuments:    state.FailedDocuments,
		})
	}
	return report
}

func (run Run) HasProcessed(document string) bool {
	for _, name := range run.Processed {
		if name == document {
			return true
		}
	}
	return false
}

// Score is the micro average of one condition so far.
func (run Run) Score(condition string) scoring.Score {
	state, ok := run.States[condition]
	if !ok {
		return scoring.Score{}
	}
	return state.Corpus.Score()
}

type docStore interface {
	GetDoc(ctx context.Context, key string, doc interface{}) (bool, error)
	SaveDoc(ctx context.Context, key string, doc interface{}) error
	UpdateDoc(ctx context.Context, key string, doc interface{}, update func() error) error
}

type Store struct {
	client docStore
}

func NewStore() (Store, error) {
	client, err := redis.NewClient(redis.RunsDB)
	if err != nil {
		return Store{}, err
	}
	return Store{client: client}, nil
}

func NewStoreWithClient(client docStore) Store {
	return Store{client: client}
}

// Close releases the underlying connection when the client owns one.
func (store Store) Close() error {
	if closer, ok := store.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

func (store Store) Create(ctx context.Context, runID string, expected int, conditions []string) (*Run, error) {
	now := time.Now().UTC()
	run := Run{
		RunID:      runID,
		Expected:   expected,
		Conditions: conditions,
		States:     make(map[string]*ConditionState, len(conditions)),
		Processed:  []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, condition := range conditions {
		run.States[condition] = &ConditionState{FailedDocuments: []string{}}
	}
	if err := store.client.SaveDoc(ctx, runKey(runID), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (store Store) Get(ctx context.Context, runID string) (*Run, error) {
	var run Run
	found, err := store.client.GetDoc(ctx, runKey(runID), &run)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

// Record folds the per-condition results of one document into the run.
// A document already recorded is ignored, so a redelivered message does not
// count twice.
func (store Store) Record(ctx context.Context, runID string, document string, results []pipeline.DocumentResult) (*Run, error) {
	var run Run
	err := store.client.UpdateDoc(ctx, runKey(runID), &run, func() error {
		if run.RunID == "" {
			return ErrRunNotFound
		}
		if run.HasProcessed(document) {
			return nil
		}
		if run.States == nil {
			run.States = make(map[string]*ConditionState)
		}
		for _, result := range results {
			state, ok := run.States[result.Condition]
			if !ok {
				state = &ConditionState{FailedDocuments: []string{}}
				run.States[result.Condition] = state
			}
			if result.Error != "" {
				state.FailedDocuments = append(state.FailedDocuments, result.Document)
				continue
			}
			if result.ClassifierFailure != "" {
				state.ClassifierFailures++
			}
			state.Corpus.Add(result.Score.Counts, result.Negation)
		}
		run.Processed = append(run.Processed, document)
		run.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}
