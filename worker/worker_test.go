package worker

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"

	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/tasks"
	"text2phenotype.com/bioscope/tokenizer"
	"text2phenotype.com/bioscope/types"
)

type mockedClientsConfig struct {
	rmqMockConfig
	redisMockConfig
	s3MockConfig
	body string
}

type mockedClients struct {
	redis *redisMock
	rmq   *rmqMock
	s3    *s3Mock
}

type methodsCalls struct {
	redis redisMockCalls
	rmq   rmqMockCalls
	s3    s3MockCalls
}

func geniaRows(rows ...string) string {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.ReplaceAll(row, " ", "\t"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func documentFiles() map[string]string {
	return map[string]string{
		"bioscope/a1.bioscope": `<Document>
<sentence id="S1.1"><xcope id="X1.1.1"><cue type="negation" ref="X1.1.1">No</cue> fever</xcope> .</sentence>
<sentence id="S1.2">Two words</sentence>
</Document>`,
		"parsed/a1.parsed": "(ROOT (NP (NP (DT No) (NN fever)) (. .)))\n(ROOT (NP (CD Two) (NNS words)))\n",
		"genia/a1.S1.1.genia": geniaRows("No no DT B-NP O", "fever fever NN I-NP O", ". . . O O"),
		"genia/a1.S1.2.genia": geniaRows("Two two CD B-NP O", "wo wo NN I-NP O", "rds rds NN I-NP O"),
	}
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) *mockedClients {
	t.Helper()
	worker, mocks := configureWorker(config)
	body := config.body
	if body == "" {
		body = `{"document_id": "a1", "sender": "sequencer"}`
	}
	worker.processMessage(&amqp.Delivery{
		MessageId: "m1",
		Body:      []byte(body),
	})
	calls := methodsCalls{
		redis: mocks.redis.calls,
		rmq:   mocks.rmq.calls,
		s3:    mocks.s3.calls,
	}
	require.Equal(t, expectedCalls, calls)
	return mocks
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	s3 := &s3Mock{config: config.s3MockConfig, files: documentFiles(), saved: map[string][]byte{}}
	rmq := &rmqMock{config: config.rmqMockConfig}

	workerLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config:       Config{3},
			corpusConfig: types.CorpusConfiguration{WorkingDir: "bioscope", CorpusFile: "corpus.xml"},
			tokenize:     tokenizer.NewTreebank(),
			redis:        redis,
			s3:           s3,
			rmq:          rmq,
			workerLogger: &workerLogger,
		}, &mockedClients{
			redis: redis,
			rmq:   rmq,
			s3:    s3,
		}
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Message without document id", testInvalidMessage)
	t.Run("Failed to get Document task", testGetDocumentTaskFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Failed to update task in onTaskExceededRetries", testFailedToUpdateOnExceededRetries)
	t.Run("Failed to update task in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Failed to load document from S3", testFailedToFetchFromS3)
	t.Run("Failed to update task in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update task in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to cache attributes", testFailedToCacheAttributes)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to publish result", testFailedPublishResult)
}

func successfulCalls() methodsCalls {
	return methodsCalls{
		redis: redisMockCalls{
			getDocumentTask: true, onTaskStarted: true, cacheAttributes: true, onTaskComplete: true,
		},
		rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		s3:  s3MockCalls{fetch: true, saveResultsFile: true},
	}
}

func testSuccessfulTask(t *testing.T) {
	mocks := testConfiguration(t, mockedClientsConfig{}, successfulCalls())

	require.Equal(t, documentSummary{sentences: 2, notLoaded: 1}, mocks.redis.summary)
	require.Len(t, mocks.redis.cached, 1)
	require.Equal(t, "S1.1", mocks.redis.cached[0].SentenceID)
	require.Equal(t, []Message{{DocumentID: "a1", Sender: senderName}}, mocks.rmq.published)

	data, ok := mocks.s3.saved["processed/a1/attributes.json"]
	require.True(t, ok)
	var results documentResults
	require.NoError(t, json.Unmarshal(data, &results))
	require.Equal(t, "a1", results.DocumentID)
	require.Equal(t, []string{"S1.2"}, results.NotLoaded)
	require.Len(t, results.Sentences, 1)
	require.Equal(t, types.SentenceTypeNegation, results.Sentences[0].SentenceType)
	require.Len(t, results.Sentences[0].Rows, 3)
}

func testInvalidMessage(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{body: "{}"},
		methodsCalls{rmq: rmqMockCalls{rejectDelivery: true}},
	)
}

func testGetDocumentTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getDocumentTask: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocumentTask: withValue{
					returnedValue: tasks.DocumentTask{Status: tasks.TaskStatusCompletedSuccess, Attempts: 1},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func exceededTask() withValue {
	return withValue{returnedValue: tasks.DocumentTask{Status: tasks.TaskStatusFailed, Attempts: 3}}
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getDocumentTask: exceededTask()},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnExceededRetries(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocumentTask:       exceededTask(),
				onTaskExceededRetries: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskStarted: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true, onTaskStarted: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToFetchFromS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{fetch: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{fetch: true},
		},
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig:    s3MockConfig{fetch: failingMethod{fail: true}},
			redisMockConfig: redisMockConfig{onTaskFailedWithError: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getDocumentTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
			s3:    s3MockCalls{fetch: true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	expected := successfulCalls()
	expected.rmq = rmqMockCalls{rejectDelivery: true}
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskComplete: failingMethod{fail: true}},
		},
		expected,
	)
}

func testFailedToCacheAttributes(t *testing.T) {
	mocks := testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{cacheAttributes: failingMethod{fail: true}},
		},
		successfulCalls(),
	)
	require.Empty(t, mocks.redis.cached)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{saveResultsFile: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocumentTask: true, onTaskStarted: true, cacheAttributes: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:  s3MockCalls{fetch: true, saveResultsFile: true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{acknowledgeDelivery: failingMethod{fail: true}},
		},
		successfulCalls(),
	)
}

func testFailedPublishResult(t *testing.T) {
	expected := successfulCalls()
	expected.rmq = rmqMockCalls{publishResult: true, rejectDelivery: true}
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{publishResult: failingMethod{fail: true}},
		},
		expected,
	)
}

type closeRecorder struct {
	closed bool
}

func (c *closeRecorder) close() {
	c.closed = true
}

func TestRefreshClosesPreviousClient(t *testing.T) {
	worker, _ := configureWorker(mockedClientsConfig{})

	previous := &closeRecorder{}
	err := worker.refresh("Test", previous, func() error { return errors.New("unreachable") })
	require.Error(t, err)
	require.False(t, previous.closed)

	require.NoError(t, worker.refresh("Test", previous, func() error { return nil }))
	require.True(t, previous.closed)

	require.NoError(t, worker.refresh("Test", nil, func() error { return nil }))
}
