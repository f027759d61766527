package worker

import (
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/logger"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/runs"
	"text2phenotype.com/anneval/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type Task struct {
	delivery     *amqp.Delivery
	message      *Message
	documentName string
	resultsKey   string
	failed       bool
	taskLogger   *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	rejectLogger := worker.workerLogger.With().Str("message_id", delivery.MessageId).Logger()
	task, err := worker.createTask(delivery)
	if err != nil {
		worker.workerLogger.Err(err).
			Str("message_id", delivery.MessageId).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	run, err := worker.processTask(task)
	if err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.publishResult(task, run); err != nil {
		task.taskLogger.Err(err).Msg("Got error while sending message to results queue")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.taskLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.taskLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(delivery *amqp.Delivery) (*Task, error) {
	var message Message
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message, got error %w", err)
	}
	if message.RunID == "" || message.DocumentKey == "" {
		return nil, errors.New("message has no run id or document key")
	}
	name := corpus.DocumentName(message.DocumentKey)
	taskLogger := logger.ForDocument(*worker.workerLogger, message.RunID, name)
	return &Task{
		delivery:     delivery,
		message:      &message,
		documentName: name,
		resultsKey:   getResultsFileKey(worker.config.ResultsPrefix, &message, name),
		taskLogger:   &taskLogger,
	}, nil
}

// processTask evaluates the document and records it in the run. A document
// that cannot be evaluated is recorded as failed; only bookkeeping errors are
// returned.
func (worker *Worker) processTask(task *Task) (*runs.Run, error) {
	run, err := worker.runs.getRun(task)
	if err != nil {
		task.taskLogger.Err(err).Msg("Failed to query run")
		return nil, err
	}
	if run.HasProcessed(task.message.DocumentKey) {
		task.taskLogger.Info().Msg("Document is already recorded (might indicate issue acking message with RMQ)")
		return run, nil
	}
	if err = worker.checkConditions(run); err != nil {
		task.taskLogger.Err(err).Msg("Worker cannot evaluate this run")
		return nil, err
	}

	results, err := worker.runEvaluation(task)
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while evaluating document")
		task.failed = true
		results = failedResults(task.documentName, run.Conditions, err)
	}
	run, err = worker.runs.record(task, results)
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while recording document results")
		return nil, err
	}
	task.taskLogger.Info().
		Int("processed", len(run.Processed)).
		Int("expected", run.Expected).
		Msg("Recorded document results")
	return run, nil
}

func (worker *Worker) runEvaluation(task *Task) (results []pipeline.DocumentResult, err error) {
	defer utils.RecoverWithError(&err)
	data, err := worker.s3.getDocument(task)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document from s3: %w", err)
	}
	doc, err := corpus.ParseMedTatorXML(task.documentName, data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), worker.config.documentTimeout())
	defer cancel()
	results = worker.evaluate(ctx, task.message.RunID, doc)

	task.taskLogger.Info().Msg("Finished evaluation, saving results to s3")
	if err = worker.s3.saveResultsFile(task, results); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}
	return results, nil
}

// checkConditions makes sure this worker evaluates every condition the run
// was submitted with.
func (worker *Worker) checkConditions(run *runs.Run) error {
	known := make(map[string]bool, len(worker.conditions))
	for _, condition := range worker.conditions {
		known[condition] = true
	}
	for _, condition := range run.Conditions {
		if !known[condition] {
			return fmt.Errorf("condition %q is not configured on this worker", condition)
		}
	}
	return nil
}

func failedResults(document string, conditions []string, err error) []pipeline.DocumentResult {
	results := make([]pipeline.DocumentResult, len(conditions))
	for i, condition := range conditions {
		results[i] = pipeline.DocumentResult{
			Document:  document,
			Condition: condition,
			Error:     err.Error(),
		}
	}
	return results
}
