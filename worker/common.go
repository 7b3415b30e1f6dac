package worker

import (
	"path"
	"time"

	"text2phenotype.com/bioscope/types"
)

func getResultsFileKey(task *Task) string {
	return path.Join(
		"processed",
		task.docTask.DocID,
		"attributes.json",
	)
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func getFormattedNow() *string {
	now := time.Now().UTC().Format(RFC3339Micro)
	return &now
}

// documentResults is the content of a results file.
type documentResults struct {
	DocumentID string                     `json:"document_id"`
	NotLoaded  []string                   `json:"not_loaded"`
	Sentences  []types.SentenceAttributes `json:"sentences"`
}

type documentSummary struct {
	sentences int
	notLoaded int
}
