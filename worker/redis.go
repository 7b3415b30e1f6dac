package worker

import (
	"fmt"

	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/types"
)

type redisTransactions interface {
	getDocumentTask(docID string) (*tasks.DocumentTask, error)
	onTaskStarted(task *Task) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task, summary documentSummary) error
	cacheAttributes(attrs types.SentenceAttributes) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) getDocumentTask(docID string) (*tasks.DocumentTask, error) {
	return wrapper.tasksClient.Documents.Get(docID)
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.tasksClient.Documents.Update(task.docTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.Status = tasks.TaskStatusStarted
		docTask.Attempts += 1
		docTask.StartedAt = getFormattedNow()
		docTask.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	return wrapper.tasksClient.Documents.Update(task.docTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.Status = tasks.TaskStatusCompletedFailure
		docTask.CompletedAt = getFormattedNow()
		docTask.ErrorMessages = append(
			docTask.ErrorMessages,
			fmt.Sprintf("Task has exceeded retries. (Attempts: %d, max retries: %d )", docTask.Attempts, maxRetries),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Documents.Update(task.docTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.Status = tasks.TaskStatusFailed
		docTask.CompletedAt = getFormattedNow()
		docTask.ErrorMessages = append(docTask.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task, summary documentSummary) error {
	return wrapper.tasksClient.Documents.Update(task.docTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.Status = tasks.TaskStatusCompletedSuccess
		docTask.CompletedAt = getFormattedNow()
		docTask.ResultsFileKey = getResultsFileKey(task)
		docTask.SentenceCount = summary.sentences
		docTask.NotLoadedCount = summary.notLoaded
	})
}

func (wrapper *redisClientWrapper) cacheAttributes(attrs types.SentenceAttributes) error {
	return wrapper.tasksClient.Attributes.Put(attrs)
}
