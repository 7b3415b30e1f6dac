package rmq

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"text2phenotype.com/bioscope/logger"
)

type Config struct {
	Host                    string `envconfig:"BSC_RMQ_HOST" required:"true"`
	Port                    string `envconfig:"BSC_RMQ_PORT" required:"true"`
	Username                string `envconfig:"BSC_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"BSC_RMQ_PASSWORD" required:"true"`
	Exchange                string `envconfig:"BSC_RMQ_DEFAULT_EXCHANGE" default:"bioscope-default-exchange"`
	MaxParallelRequestCount int    `envconfig:"BSC_MQ_MAX_PARALLEL_REQUESTS" default:"5"`
	DocumentTaskQueue       string `envconfig:"BSC_DOCUMENT_TASK_QUEUE" required:"true"`
	ResultQueue             string `envconfig:"BSC_RESULT_QUEUE" required:"true"`
}

func (config Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

// Client consumes document tasks on one connection and publishes results on
// another, so that a blocked publisher never stalls deliveries.
type Client struct {
	Deliveries     <-chan amqp.Delivery
	ReqChanErrors  <-chan *amqp.Error
	RespChanErrors <-chan *amqp.Error
	config         Config
	reqConn        *amqp.Connection
	respConn       *amqp.Connection
	respChannel    *amqp.Channel
	rmqLogger      zerolog.Logger
}

func NewClient() (*Client, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	c := &Client{config: config, rmqLogger: rmqLogger}
	if err := c.connect(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	var (
		reqChannel *amqp.Channel
		err        error
	)
	url := c.config.URL()
	if c.respConn, c.respChannel, err = dial(url); err != nil {
		return fmt.Errorf("failed result connection: %w", err)
	}
	if c.reqConn, reqChannel, err = dial(url); err != nil {
		return fmt.Errorf("failed task connection: %w", err)
	}
	if c.Deliveries, err = c.consume(reqChannel); err != nil {
		return err
	}
	c.ReqChanErrors = reqChannel.NotifyClose(make(chan *amqp.Error))
	c.RespChanErrors = c.respChannel.NotifyClose(make(chan *amqp.Error))
	c.rmqLogger.Info().
		Str("queue", c.config.DocumentTaskQueue).
		Int("prefetch", c.config.MaxParallelRequestCount).
		Msg("Consuming document tasks")
	return nil
}

func (c *Client) consume(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	queue := c.config.DocumentTaskQueue
	// the queue is owned by the producer; declaring passively fails fast
	// when it does not exist
	q, err := ch.QueueDeclarePassive(queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, c.config.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind %s: %w", queue, err)
	}
	if err := ch.Qos(c.config.MaxParallelRequestCount, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume deliveries: %w", err)
	}
	return deliveries, nil
}

// PublishResult sends a processing result to the result queue.
func (c *Client) PublishResult(msg amqp.Publishing) error {
	c.rmqLogger.Debug().Str("queue", c.config.ResultQueue).Msg("Publishing result")
	return c.respChannel.Publish(c.config.Exchange, c.config.ResultQueue, false, false, msg)
}

func (c *Client) Close() {
	if c.reqConn != nil {
		_ = c.reqConn.Close()
	}
	if c.respConn != nil {
		_ = c.respConn.Close()
	}
}

func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
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
