package worker

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/rmq"
	"text2phenotype.com/bioscope/s3client"
	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/tokenizer"
	"text2phenotype.com/bioscope/types"
)

type Config struct {
	TaskMaxRetries int `envconfig:"BSC_RETRY_TASK_COUNT_MAX" default:"3"`
}

// Worker loads the documents named by queued tasks from S3, stores their
// attribute tables and reports back on the result queue.
type Worker struct {
	config       Config
	corpusConfig types.CorpusConfiguration
	tokenize     tokenizer.Tokenizer
	redis        redisTransactions
	s3           s3Transactions
	rmq          rmqTransactions
	workerLogger *zerolog.Logger
}

func New(corpusConfig types.CorpusConfiguration) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := Worker{
		config:       config,
		corpusConfig: corpusConfig,
		tokenize:     tokenizer.NewTreebank(),
		workerLogger: &workerLogger,
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
	if err := worker.refreshRedisClients(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create Redis client")
		worker.rmq.close()
		worker.s3.close()
		return nil, err
	}
	return &worker, nil
}

func (worker *Worker) StartWorker() error {
	defer worker.Close()
	for {
		var err error
		select {
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				go worker.processMessage(&delivery)
				continue
			}
			err = worker.reconnect("deliveries channel has been closed", nil)
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr != nil {
				err = worker.reconnect("result connection received error", rmqErr)
			}
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr != nil {
				err = worker.reconnect("task connection received error", rmqErr)
			}
		}
		if err != nil {
			return err
		}
	}
}

func (worker *Worker) reconnect(reason string, cause *amqp.Error) error {
	event := worker.workerLogger.Error()
	if cause != nil {
		event = event.Err(cause)
	}
	event.Msgf("RMQ %s, trying to refresh RMQ client", reason)
	if err := worker.refreshRMQClient(); err != nil {
		return fmt.Errorf("rmq %s and refresh failed with: %w", reason, err)
	}
	return nil
}

func (worker *Worker) Close() {
	worker.redis.close()
	worker.s3.close()
	worker.rmq.close()
}

// refresh connects a new client and closes the previous one once the new
// one is in place.
func (worker *Worker) refresh(name string, previous interface{ close() }, connect func() error) error {
	worker.workerLogger.Info().Msgf("Refreshing %s client", name)
	if err := connect(); err != nil {
		worker.workerLogger.Err(err).Msgf("Failed to refresh %s client", name)
		return err
	}
	if previous != nil {
		previous.close()
	}
	worker.workerLogger.Info().Msgf("Refreshed %s client", name)
	return nil
}

func (worker *Worker) refreshRedisClients() error {
	return worker.refresh("Redis", worker.redis, func() error {
		tasksClient, err := tasks.NewClient()
		if err != nil {
			return err
		}
		worker.redis = &redisClientWrapper{&tasksClient}
		return nil
	})
}

func (worker *Worker) refreshRMQClient() error {
	return worker.refresh("RMQ", worker.rmq, func() error {
		rmqClient, err := rmq.NewClient()
		if err != nil {
			return err
		}
		worker.rmq = &rmqClientWrapper{rmqClient}
		return nil
	})
}

func (worker *Worker) refreshS3Client() error {
	return worker.refresh("S3", worker.s3, func() error {
		s3Client, err := s3client.New()
		if err != nil {
			return err
		}
		worker.s3 = &s3ClientWrapper{s3Client}
		return nil
	})
}
