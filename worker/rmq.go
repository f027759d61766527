package worker

import (
	"text2phenotype.com/anneval/rmq"
	"text2phenotype.com/anneval/runs"
	"encoding/json"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const sender = "anneval-worker"

type rmqTransactions interface {
	publishResult(task *Task, run *runs.Run) error
	acknowledgeDelivery(delivery *amqp.Delivery) error
	rejectDelivery(delivery *amqp.Delivery, workerLogger *zerolog.Logger)
	getDeliveriesCh() <-chan amqp.Delivery
	getReqChanErrorsCh() <-chan *amqp.Error
	getRespChanErrorsCh() <-chan *amqp.Error
	close()
}

type rmqClientWrapper struct {
	rmqClient *rmq.Client
}

func (wrapper *rmqClientWrapper) close() {
	wrapper.rmqClient.Close()
}

func (wrapper *rmqClientWrapper) getDeliveriesCh() <-chan amqp.Delivery {
	return wrapper.rmqClient.Deliveries
}

func (wrapper *rmqClientWrapper) getReqChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.ReqChanErrors
}

func (wrapper *rmqClientWrapper) getRespChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.RespChanErrors
}

func (wrapper *rmqClientWrapper) publishResult(task *Task, run *runs.Run) error {
	b, err := json.Marshal(newResultMessage(task, run))
	if err != nil {
		return err
	}
	return wrapper.rmqClient.SendResult(
		amqp.Publishing{
			ContentType: "application/json",
			Body:        b,
		},
	)
}

func newResultMessage(task *Task, run *runs.Run) ResultMessage {
	message := ResultMessage{
		RunID:       task.message.RunID,
		DocumentKey: task.message.DocumentKey,
		Failed:      task.failed,
		Processed:   len(run.Processed),
		Expected:    run.Expected,
		Status:      run.Status(),
		Sender:      sender,
		CompletedAt: getFormattedNow(),
	}
	if !task.failed {
		message.ResultsKey = task.resultsKey
	}
	return message
}

func (wrapper *rmqClientWrapper) acknowledgeDelivery(delivery *amqp.Delivery) error {
	return delivery.Ack(false)
}

func (wrapper *rmqClientWrapper) rejectDelivery(delivery *amqp.Delivery, workerLogger *zerolog.Logger) {
	if delivery.Redelivered {
		workerLogger.Info().Msg("Rejecting delivery as it already has been redelivered")
		err := delivery.Reject(false)
		if err != nil {
			workerLogger.Err(err).Msg("Failed to reject delivery")
		}
		return
	}
	workerLogger.Info().Msg("Requeuing delivery as it has not been redelivered yet")
	err := delivery.Reject(true)
	if err != nil {
		workerLogger.Err(err).Msg("Failed to requeue delivery")
	}
}
