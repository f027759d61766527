package worker

import (
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/runs"
	"context"
)

type runsTransactions interface {
	getRun(task *Task) (*runs.Run, error)
	record(task *Task, results []pipeline.DocumentResult) (*runs.Run, error)
	close()
}

type runsStoreWrapper struct {
	store runs.Store
}

func (wrapper *runsStoreWrapper) close() {
	_ = wrapper.store.Close()
}

func (wrapper *runsStoreWrapper) getRun(task *Task) (*runs.Run, error) {
	return wrapper.store.Get(context.Background(), task.message.RunID)
}

func (wrapper *runsStoreWrapper) record(task *Task, results []pipeline.DocumentResult) (*runs.Run, error) {
	return wrapper.store.Record(context.Background(), task.message.RunID, task.message.DocumentKey, results)
}
