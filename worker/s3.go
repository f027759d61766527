package worker

import (
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/s3client"
	"encoding/json"
)

type s3Transactions interface {
	saveResultsFile(task *Task, results []pipeline.DocumentResult) error
	getDocument(task *Task) ([]byte, error)
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) saveResultsFile(task *Task, results []pipeline.DocumentResult) error {
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return wrapper.s3Client.Upload(b, task.resultsKey)
}

func (wrapper *s3ClientWrapper) getDocument(task *Task) ([]byte, error) {
	return wrapper.s3Client.Download(task.message.DocumentKey)
}
