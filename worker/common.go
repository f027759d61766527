package worker

import (
	"text2phenotype.com/anneval/runs"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/streadway/amqp"
)

const (
	MessageVersion = "1"
	RFC3339Micro   = "2006-01-02T15:04:05.000000-07:00"
)

// Message asks a worker to evaluate one corpus document for a run.
type Message struct {
	RunID       string `json:"run_id"`
	DocumentKey string `json:"document_key"`
	Sender      string `json:"sender"`
	Version     string `json:"version"`
}

func NewMessage(runID string, documentKey string, sender string) Message {
	return Message{
		RunID:       runID,
		DocumentKey: documentKey,
		Sender:      sender,
		Version:     MessageVersion,
	}
}

func (message Message) Publishing() (amqp.Publishing, error) {
	b, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	}, nil
}

// ResultMessage is published once a document has been folded into its run.
type ResultMessage struct {
	RunID       string      `json:"run_id"`
	DocumentKey string      `json:"document_key"`
	ResultsKey  string      `json:"results_key,omitempty"`
	Failed      bool        `json:"failed"`
	Processed   int         `json:"processed_documents"`
	Expected    int         `json:"expected_documents"`
	Status      runs.Status `json:"status"`
	Sender      string      `json:"sender"`
	CompletedAt string      `json:"completed_at"`
}

func getResultsFileKey(prefix string, message *Message, documentName string) string {
	return path.Join(prefix, message.RunID, fmt.Sprintf("%s.json", documentName))
}

func getFormattedNow() string {
	return time.Now().UTC().Format(RFC3339Micro)
}
