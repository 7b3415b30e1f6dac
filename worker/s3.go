package worker

import (
	"context"

	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/s3client"
)

type s3Transactions interface {
	corpus.Fetcher
	saveResultsFile(task *Task, data []byte) error
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) Fetch(ctx context.Context, name string) ([]byte, error) {
	return wrapper.s3Client.Fetch(ctx, name)
}

func (wrapper *s3ClientWrapper) saveResultsFile(task *Task, data []byte) error {
	_, err := wrapper.s3Client.Upload(context.Background(), data, getResultsFileKey(task))
	return err
}
