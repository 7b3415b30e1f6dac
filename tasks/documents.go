package tasks

import (
	"fmt"

	"text2phenotype.com/bioscope/redis"
)

const DocumentsDB redis.DB = 0

type TaskStatus string

const (
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure
}

// DocumentTask is the processing status of one corpus document.
type DocumentTask struct {
	DocID          string     `json:"document_id"`
	Status         TaskStatus `json:"status"`
	Attempts       int        `json:"attempts"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	ResultsFileKey string     `json:"results_file_key"`
	SentenceCount  int        `json:"sentence_count"`
	NotLoadedCount int        `json:"not_loaded_count"`
	ErrorMessages  []string   `json:"error_messages"`
}

type DocumentTasks struct {
	client redis.Client
}

func documentKey(docID string) string {
	return fmt.Sprintf("document:%s", docID)
}

// Get returns the task of a document, or a new submitted task when the
// document was never seen.
func (tasks DocumentTasks) Get(docID string) (*DocumentTask, error) {
	task := DocumentTask{DocID: docID, Status: TaskStatusSubmitted}
	err := tasks.client.GetJSON(documentKey(docID), &task)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) Update(docID string, updateFunc func(task *DocumentTask)) error {
	task := DocumentTask{DocID: docID, Status: TaskStatusSubmitted}
	return tasks.client.UpdateJSON(documentKey(docID), &task, func() error {
		updateFunc(&task)
		return nil
	})
}
