package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/types"
	"text2phenotype.com/bioscope/utils"
)

var errMissingDocumentID = errors.New("message has no document id")

type Message struct {
	DocumentID string `json:"document_id"`
	Sender     string `json:"sender"`
}

type Task struct {
	delivery   *amqp.Delivery
	docTask    *tasks.DocumentTask
	message    *Message
	taskLogger *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	rejectLogger := worker.workerLogger.With().Str("message_id", delivery.MessageId).Logger()
	task, err := worker.createTask(delivery)
	if err != nil {
		rejectLogger.Err(err).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.processTask(task); err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.publishResult(task, *task.message); err != nil {
		task.taskLogger.Err(err).Msg("Got error while sending message to result queue")
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
	if message.DocumentID == "" {
		return nil, errMissingDocumentID
	}
	docTask, err := worker.redis.getDocumentTask(message.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document task for message, got error %w", err)
	}
	taskLogger := worker.workerLogger.With().Str("document_id", message.DocumentID).Logger()
	return &Task{
		delivery:   delivery,
		docTask:    docTask,
		message:    &message,
		taskLogger: &taskLogger,
	}, nil
}

// processTask returns an error only when the task state could not be
// recorded; a failed document is a processed task.
func (worker *Worker) processTask(task *Task) error {
	if !worker.shouldPerformTask(task) {
		if task.docTask.Status.Complete() {
			return nil
		}
		task.taskLogger.Info().Msg("Document task has exceeded retries")
		return worker.redis.onTaskExceededRetries(task, worker.config.TaskMaxRetries)
	}
	if err := worker.redis.onTaskStarted(task); err != nil {
		task.taskLogger.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update document task: %w", err)
	}
	summary, err := worker.runTask(task)
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while processing document")
		return worker.redis.onTaskFailedWithError(task, err)
	}
	task.taskLogger.Info().
		Int("sentences", summary.sentences).
		Int("not_loaded", summary.notLoaded).
		Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(task, summary); err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

func (worker *Worker) shouldPerformTask(task *Task) bool {
	if task.docTask.Status.Complete() {
		task.taskLogger.Info().Msg("Task is already done, sending result again")
		return false
	}
	return task.docTask.Attempts < worker.config.TaskMaxRetries
}

func (worker *Worker) runTask(task *Task) (summary documentSummary, err error) {
	defer utils.RecoverWithError(&err)
	task.taskLogger.Info().Msgf("Processing document, attempt # %d", task.docTask.Attempts+1)

	ctx := context.Background()
	src := corpus.NewFileSource(worker.corpusConfig, worker.s3)
	doc, err := corpus.LoadDocument(ctx, src, task.docTask.DocID, worker.tokenize)
	if err != nil {
		return summary, fmt.Errorf("failed to load document: %w", err)
	}

	results := documentResults{DocumentID: doc.ID, NotLoaded: []string{}, Sentences: []types.SentenceAttributes{}}
	for _, s := range doc.Ordered() {
		if !s.Loaded {
			results.NotLoaded = append(results.NotLoaded, s.ID)
			continue
		}
		attrs, err := s.Attributes()
		if err != nil {
			return summary, err
		}
		if err := worker.redis.cacheAttributes(attrs); err != nil {
			task.taskLogger.Warn().Err(err).Str("sentence_id", s.ID).Msg("Could not cache sentence attributes")
		}
		results.Sentences = append(results.Sentences, attrs)
	}

	data, err := json.Marshal(results)
	if err != nil {
		return summary, err
	}
	if err = worker.s3.saveResultsFile(task, data); err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to save results")
		return summary, err
	}
	return documentSummary{sentences: len(doc.Sentences), notLoaded: len(results.NotLoaded)}, nil
}
