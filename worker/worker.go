package worker

import (
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/logger"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/rmq"
	"text2phenotype.com/anneval/runs"
	"text2phenotype.com/anneval/s3client"
	"context"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

type Config struct {
	ResultsPrefix          string `envconfig:"ANNEVAL_RESULTS_PREFIX" default:"results"`
	DocumentTimeoutSeconds int    `envconfig:"ANNEVAL_DOCUMENT_TIMEOUT_SECONDS" default:"900"`
}

func (config Config) documentTimeout() time.Duration {
	return time.Duration(config.DocumentTimeoutSeconds) * time.Second
}

// Evaluate returns one result per condition for doc.
type Evaluate func(ctx context.Context, runID string, doc corpus.Document) []pipeline.DocumentResult

type Worker struct {
	config       Config
	runs         runsTransactions
	s3           s3Transactions
	rmq          rmqTransactions
	workerLogger *zerolog.Logger
	evaluate     Evaluate
	conditions   []string
}

func New(runner *pipeline.Runner) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	configs := runner.Configurations()
	conditions := make([]string, len(configs))
	for i, cfg := range configs {
		conditions[i] = cfg.Name
	}

	worker := Worker{
		config:       config,
		workerLogger: &workerLogger,
		evaluate:     runner.EvaluateDocument,
		conditions:   conditions,
	}
	if err := worker.refreshRMQClient(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create RMQ client")
		return nil, err
	}
	if err := worker.refreshS3Client(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create S3 client")
		worker.rmq.close()
		return nil, err
	}
	if err := worker.refreshRunsStore(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create Redis client")
		worker.rmq.close()
		worker.s3.close()
		return nil, err
	}
	return &worker, nil
}

// StartWorker consumes evaluation requests until ctx is done or the RMQ
// connection cannot be restored.
func (worker *Worker) StartWorker(ctx context.Context) error {
	defer worker.Close()
	for {
		select {
		case <-ctx.Done():
			worker.workerLogger.Info().Msg("Stopping worker")
			return nil
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				go worker.processMessage(&delivery)
				continue
			}
			worker.workerLogger.Error().Msg("Deliveries channel closed, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"rmq deliveries channel has been closed and refresh returned error: %w",
					err,
				)
			}
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			worker.workerLogger.Err(rmqErr).Msg("Response connection received error, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"response connection received error and refresh failed with: %w",
					err,
				)
			}
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			worker.workerLogger.Err(rmqErr).Msg("Request connection received error, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"request connection received error and refresh failed with: %w",
					err,
				)
			}
		}
	}
}

func (worker *Worker) Close() {
	worker.runs.close()
	worker.s3.close()
	worker.rmq.close()
}

func (worker *Worker) refreshRunsStore() error {
	worker.workerLogger.Info().Msg("Refreshing Redis client")
	if oldClient := worker.runs; oldClient != nil {
		defer oldClient.close()
	}
	store, err := runs.NewStore()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh Redis client")
		return err
	}
	worker.runs = &runsStoreWrapper{store}
	worker.workerLogger.Info().Msg("Refreshed Redis client")
	return nil
}

func (worker *Worker) refreshRMQClient() error {
	worker.workerLogger.Info().Msg("Refreshing RMQ client")
	if oldClient := worker.rmq; oldClient != nil {
		defer oldClient.close()
	}
	rmqClient, err := rmq.NewClient()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh RMQ client")
		return err
	}
	worker.rmq = &rmqClientWrapper{rmqClient}
	worker.workerLogger.Info().Msg("Refreshed RMQ client")
	return nil
}

func (worker *Worker) refreshS3Client() error {
	worker.workerLogger.Info().Msg("Refreshing S3 client")
	if oldClient := worker.s3; oldClient != nil {
		defer oldClient.close()
	}
	s3Client, err := s3client.New()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh S3 client")
		return err
	}
	worker.s3 = &s3ClientWrapper{s3Client}
	worker.workerLogger.Info().Msg("Refreshed S3 client")
	return nil
}
