package rmq

import (
	"text2phenotype.com/anneval/logger"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type Config struct {
	Host                    string `envconfig:"MDL_COMN_RMQ_HOST" required:"true"`
	Port                    string `envconfig:"MDL_COMN_RMQ_PORT" required:"true"`
	Username                string `envconfig:"MDL_COMN_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"MDL_COMN_RMQ_PASSWORD" required:"true"`
	Exchange                string `envconfig:"MDL_COMN_RMQ_DEFAULT_EXCHANGE" default:"text2phenotype-default-exchange"`
	MaxParallelRequestCount int    `envconfig:"ANNEVAL_MQ_MAX_PARALLEL_REQUESTS" default:"5"`
	EvaluationQueue         string `envconfig:"ANNEVAL_EVALUATION_QUEUE" default:"anneval-evaluation"`
	ResultsQueue            string `envconfig:"ANNEVAL_RESULTS_QUEUE" default:"anneval-results"`
}

// Client consumes evaluation requests on one connection and publishes on
// another. A publisher-only client has nil Deliveries and ReqChanErrors.
type Client struct {
	Deliveries     <-chan amqp.Delivery
	ReqChanErrors  <-chan *amqp.Error
	RespChanErrors <-chan *amqp.Error
	config         Config
	reqConn        *amqp.Connection
	respConn       *amqp.Connection
	respChannel    *amqp.Channel
	clientLogger   *zerolog.Logger
}

func readConfig(clientLogger zerolog.Logger) (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		clientLogger.Error().Err(err).Msg("Could not read env config")
		return config, err
	}
	return config, nil
}

// NewClient connects, declares both queues and starts consuming the
// evaluation queue.
func NewClient() (*Client, error) {
	clientLogger := logger.NewLogger("RMQ client")
	config, err := readConfig(clientLogger)
	if err != nil {
		return nil, err
	}
	client, err := newPublisher(config, &clientLogger)
	if err != nil {
		return nil, err
	}

	reqConn, reqChannel, err := setup(getURL(config))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	client.reqConn = reqConn

	if err := reqChannel.Qos(config.MaxParallelRequestCount, 0, false); err != nil {
		client.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := reqChannel.Consume(
		config.EvaluationQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("consume deliveries: %w", err)
	}
	client.Deliveries = deliveries
	client.ReqChanErrors = reqChannel.NotifyClose(make(chan *amqp.Error))
	return client, nil
}

// NewPublisher connects for publishing only; used to submit runs.
func NewPublisher() (*Client, error) {
	clientLogger := logger.NewLogger("RMQ publisher")
	config, err := readConfig(clientLogger)
	if err != nil {
		return nil, err
	}
	return newPublisher(config, &clientLogger)
}

func newPublisher(config Config, clientLogger *zerolog.Logger) (*Client, error) {
	respConn, respChannel, err := setup(getURL(config))
	if err != nil {
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	for _, queue := range []string{config.EvaluationQueue, config.ResultsQueue} {
		if err := declare(respChannel, config.Exchange, queue); err != nil {
			_ = respConn.Close()
			return nil, err
		}
	}
	return &Client{
		RespChanErrors: respChannel.NotifyClose(make(chan *amqp.Error)),
		config:         config,
		respConn:       respConn,
		respChannel:    respChannel,
		clientLogger:   clientLogger,
	}, nil
}

func declare(channel *amqp.Channel, exchange string, queue string) error {
	_, err := channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	if exchange == "" {
		return nil
	}
	if err := channel.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", queue, err)
	}
	return nil
}

// Publish sends msg to queue through the configured exchange.
func (c *Client) Publish(queue string, msg amqp.Publishing) error {
	return c.respChannel.Publish(
		c.config.Exchange,
		queue,
		false,
		false,
		msg)
}

func (c *Client) SendEvaluationRequest(msg amqp.Publishing) error {
	return c.Publish(c.config.EvaluationQueue, msg)
}

func (c *Client) SendResult(msg amqp.Publishing) error {
	return c.Publish(c.config.ResultsQueue, msg)
}

func (c *Client) Close() {
	if c.reqConn != nil {
		_ = c.reqConn.Close()
	}
	if c.respConn != nil {
		_ = c.respConn.Close()
	}
}

func getURL(config Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
