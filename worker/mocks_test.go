package worker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/types"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type redisMock struct {
	config  redisMockConfig
	calls   redisMockCalls
	summary documentSummary
	cached  []types.SentenceAttributes
}

type redisMockConfig struct {
	getDocumentTask       withValue
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
	cacheAttributes       failingMethod
}

type redisMockCalls struct {
	getDocumentTask       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
	cacheAttributes       bool
}

type rmqMock struct {
	config    rmqMockConfig
	calls     rmqMockCalls
	published []Message
}

type rmqMockConfig struct {
	publishResult       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	publishResult       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
	files  map[string]string
	saved  map[string][]byte
}

type s3MockConfig struct {
	fetch           failingMethod
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	fetch           bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

func (mock *redisMock) getDocumentTask(docID string) (*tasks.DocumentTask, error) {
	mock.calls.getDocumentTask = true
	if mock.config.getDocumentTask.fail {
		return nil, errors.New("failed to get document task")
	}
	switch value := mock.config.getDocumentTask.returnedValue.(type) {
	case tasks.DocumentTask:
		value.DocID = docID
		return &value, nil
	default:
		return &tasks.DocumentTask{DocID: docID, Status: tasks.TaskStatusSubmitted}, nil
	}
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update document task on start")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update document task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update document task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task, summary documentSummary) error {
	mock.calls.onTaskComplete = true
	mock.summary = summary
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update document task on complete")
	}
	return nil
}

func (mock *redisMock) cacheAttributes(attrs types.SentenceAttributes) error {
	mock.calls.cacheAttributes = true
	if mock.config.cacheAttributes.fail {
		return errors.New("failed to cache attributes")
	}
	mock.cached = append(mock.cached, attrs)
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, rejectLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) publishResult(task *Task, message Message) error {
	mock.calls.publishResult = true
	if mock.config.publishResult.fail {
		return errors.New("failed to publish result")
	}
	message.Sender = senderName
	mock.published = append(mock.published, message)
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) Fetch(_ context.Context, name string) ([]byte, error) {
	mock.calls.fetch = true
	if mock.config.fetch.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	content, ok := mock.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return []byte(content), nil
}

func (mock *s3Mock) saveResultsFile(task *Task, data []byte) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	mock.saved[getResultsFileKey(task)] = data
	return nil
}
