package worker

import (
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/runs"
	"text2phenotype.com/anneval/scoring"
	"context"
	"errors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" ?>
<VAERS_AE>
<TEXT><![CDATA[Patient reports fever. Denies cough.]]></TEXT>
<TAGS>
<Fever spans="16~21" text="fever" id="F0" certainty="positive"/>
<Cough spans="30~35" text="cough" id="C0" certainty="negated"/>
</TAGS>
</VAERS_AE>`

var testConditions = []string{"qwen3:8b | negation=OFF", "qwen3:8b | negation=ON"}

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type evaluateMock struct {
	evaluate Evaluate
	config   evaluateMockConfig
	calls    evaluateCall
	doc      corpus.Document
}

type evaluateMockConfig struct {
	panics bool
}

type evaluateCall struct {
	evaluate bool
}

type runsMock struct {
	config   runsMockConfig
	calls    runsMockCalls
	recorded []pipeline.DocumentResult
}

type runsMockConfig struct {
	getRun withValue
	record failingMethod
}

type runsMockCalls struct {
	getRun bool
	record bool
}

type rmqMock struct {
	config    rmqMockConfig
	calls     rmqMockCalls
	published *ResultMessage
}

type rmqMockConfig struct {
	publishResult       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	publishResult       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
}

type s3MockConfig struct {
	getDocument     withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	getDocument     bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *runsMock) close() {}

func getEvaluateMock(config evaluateMockConfig) *evaluateMock {
	mock := evaluateMock{config: config}
	mock.evaluate = func(_ context.Context, _ string, doc corpus.Document) []pipeline.DocumentResult {
		mock.calls.evaluate = true
		mock.doc = doc
		if mock.config.panics {
			panic("model exploded")
		}
		results := make([]pipeline.DocumentResult, len(testConditions))
		for i, condition := range testConditions {
			results[i] = pipeline.DocumentResult{
				Document:  doc.Name,
				Condition: condition,
				Score:     scoring.Counts{TP: 1}.Score(),
			}
		}
		return results
	}
	return &mock
}

func defaultRun() runs.Run {
	return runs.Run{
		RunID:      "run-1",
		Expected:   2,
		Conditions: testConditions,
		Processed:  []string{},
	}
}

func (mock *runsMock) getRun(task *Task) (*runs.Run, error) {
	mock.calls.getRun = true
	if mock.config.getRun.fail {
		return nil, runs.ErrRunNotFound
	}
	switch mock.config.getRun.returnedValue.(type) {
	case runs.Run:
		run := mock.config.getRun.returnedValue.(runs.Run)
		return &run, nil
	default:
		run := defaultRun()
		return &run, nil
	}
}

func (mock *runsMock) record(task *Task, results []pipeline.DocumentResult) (*runs.Run, error) {
	mock.calls.record = true
	mock.recorded = results
	if mock.config.record.fail {
		return nil, errors.New("failed to update run")
	}
	run := defaultRun()
	run.Processed = append(run.Processed, task.message.DocumentKey)
	return &run, nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, workerLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) publishResult(task *Task, run *runs.Run) error {
	mock.calls.publishResult = true
	if mock.config.publishResult.fail {
		return errors.New("failed to publish result")
	}
	message := newResultMessage(task, run)
	mock.published = &message
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) getDocument(task *Task) ([]byte, error) {
	mock.calls.getDocument = true
	if mock.config.getDocument.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	switch mock.config.getDocument.returnedValue.(type) {
	case []byte:
		return mock.config.getDocument.returnedValue.([]byte), nil
	default:
		return []byte(sampleDocument), nil
	}
}

func (mock *s3Mock) saveResultsFile(task *Task, results []pipeline.DocumentResult) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}
