package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/stretchr/testify/require"

	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/types"
)

type memFetcher map[string]string

func (m memFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	content, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return []byte(content), nil
}

type memCache map[string]types.SentenceAttributes

func (m memCache) Get(docID string, sentenceID string) (types.SentenceAttributes, bool, error) {
	attrs, ok := m[docID+"/"+sentenceID]
	return attrs, ok, nil
}

func tagged(rows ...string) string {
	return strings.ReplaceAll(strings.Join(rows, "\n"), " ", "\t") + "\n"
}

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	files := memFetcher{
		"bioscope/a1.bioscope": `<Document>
<sentence id="S1.1"><xcope id="X1.1.1"><cue type="negation" ref="X1.1.1">No</cue> fever</xcope> .</sentence>
<sentence id="S1.2">Two words</sentence>
</Document>`,
		"parsed/a1.parsed":    "(ROOT (NP (NP (DT No) (NN fever)) (. .)))\n(ROOT (NP (CD Two) (NNS words)))\n",
		"genia/a1.S1.1.genia": tagged("No no DT B-NP O", "fever fever NN I-NP O", ". . . O O"),
		"genia/a1.S1.2.genia": tagged("Two two CD B-NP O", "wo wo NN I-NP O", "rds rds NN I-NP O"),
	}
	cfg := types.CorpusConfiguration{WorkingDir: "bioscope", CorpusFile: "corpus.xml"}
	c, err := corpus.LoadCorpus(context.Background(), corpus.NewFileSource(cfg, files), []string{"a1"}, nil)
	require.NoError(t, err)
	return c
}

func post(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func requireJSON(t *testing.T, expected string, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, jsonpatch.Equal([]byte(expected), rec.Body.Bytes()), "unexpected body %s", rec.Body.String())
}

func TestScope(t *testing.T) {
	handler := (&Request{Corpus: testCorpus(t)}).Handler()

	rec := post(t, handler, "/scope", `{"document_id":"a1","sentence_id":"S1.1","node":[0,0],"cue":0,"heuristics":true}`)
	requireJSON(t, `{"start":0,"end":1,"tokens":["No","fever"]}`, rec)

	// the final period is left out of the scope of the whole phrase
	rec = post(t, handler, "/scope", `{"document_id":"a1","sentence_id":"S1.1","node":[0],"cue":0}`)
	requireJSON(t, `{"start":0,"end":1,"tokens":["No","fever"]}`, rec)

	rec = post(t, handler, "/scope", `{"document_id":"a1","sentence_id":"S1.1","node":[0,0,1,0],"cue":1}`)
	requireJSON(t, `{"start":1,"end":1,"tokens":["fever"]}`, rec)
}

func TestScopeErrors(t *testing.T) {
	handler := (&Request{Corpus: testCorpus(t)}).Handler()

	for name, tc := range map[string]struct {
		body   string
		status int
	}{
		"unknown document":  {`{"document_id":"a9","sentence_id":"S1.1","node":[0]}`, http.StatusNotFound},
		"unknown sentence":  {`{"document_id":"a1","sentence_id":"S9","node":[0]}`, http.StatusNotFound},
		"not loaded":        {`{"document_id":"a1","sentence_id":"S1.2","node":[0]}`, http.StatusConflict},
		"invalid node":      {`{"document_id":"a1","sentence_id":"S1.1","node":[5]}`, http.StatusBadRequest},
		"invalid cue":       {`{"document_id":"a1","sentence_id":"S1.1","node":[0],"cue":7}`, http.StatusBadRequest},
		"malformed request": {`{"document_id":`, http.StatusBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			rec := post(t, handler, "/scope", tc.body)
			require.Equal(t, tc.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scope", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAttributes(t *testing.T) {
	c := testCorpus(t)
	handler := (&Request{Corpus: c}).Handler()

	s, err := c.Sentence("a1", "S1.1")
	require.NoError(t, err)
	attrs, err := s.Attributes()
	require.NoError(t, err)
	expected, err := json.Marshal(AttributesResponse{Header: types.AttributeHeader, SentenceAttributes: attrs})
	require.NoError(t, err)

	rec := post(t, handler, "/attributes", `{"document_id":"a1","sentence_id":"S1.1"}`)
	requireJSON(t, string(expected), rec)
	require.Contains(t, rec.Body.String(), `"sentence_type":"NEGATION"`)

	rec = post(t, handler, "/attributes", `{"document_id":"a1","sentence_id":"S1.2"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAttributesFromCache(t *testing.T) {
	cache := memCache{
		"b7/S7.1": {
			DocumentID:   "b7",
			SentenceID:   "S7.1",
			SentenceType: types.SentenceTypeNone,
			Rows:         [][]string{{"Fine", "fine", "JJ", "B-ADJP", "O", "O", "O", "O", "O"}},
		},
	}
	handler := (&Request{Corpus: testCorpus(t), Cache: cache}).Handler()

	rec := post(t, handler, "/attributes", `{"document_id":"b7","sentence_id":"S7.1"}`)
	requireJSON(t, `{
		"header": ["TOKEN","LEMMA","POS","CHUNK","NE","SPEC-CUE","NEG-CUE","SPEC-XCOPE","NEG-XCOPE"],
		"document_id": "b7",
		"sentence_id": "S7.1",
		"sentence_type": "NONE",
		"rows": [["Fine","fine","JJ","B-ADJP","O","O","O","O","O"]]
	}`, rec)

	rec = post(t, handler, "/attributes", `{"document_id":"b7","sentence_id":"S7.2"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
