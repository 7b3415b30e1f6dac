package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/scope"
	"text2phenotype.com/bioscope/tree"
	"text2phenotype.com/bioscope/types"
)

// AttributeCache serves attribute tables of documents processed by the
// worker but absent from the loaded corpus.
type AttributeCache interface {
	Get(docID string, sentenceID string) (types.SentenceAttributes, bool, error)
}

type Request struct {
	Corpus *corpus.Corpus
	Cache  AttributeCache
	// UseHeuristics applies when a scope request does not say.
	UseHeuristics bool
}

type sentenceRef struct {
	DocumentID string `json:"document_id"`
	SentenceID string `json:"sentence_id"`
}

type ScopeRequest struct {
	sentenceRef
	Node       []int `json:"node"`
	Cue        int   `json:"cue"`
	Heuristics *bool `json:"heuristics"`
}

type ScopeResponse struct {
	scope.Span
	Tokens []string `json:"tokens"`
}

type AttributesResponse struct {
	Header []string `json:"header"`
	types.SentenceAttributes
}

// Handler routes the scope and attribute endpoints.
func (req *Request) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scope", req.Scope)
	mux.HandleFunc("/attributes", req.Attributes)
	return withRequestLogging(mux)
}

func (req *Request) Scope(w http.ResponseWriter, r *http.Request) {
	log := makeRequestLogger(r)
	var body ScopeRequest
	if !decode(w, r, &log, &body) {
		return
	}
	s, ok := req.loadedSentence(w, &log, body.sentenceRef)
	if !ok {
		return
	}

	heuristics := req.UseHeuristics
	if body.Heuristics != nil {
		heuristics = *body.Heuristics
	}
	resolver := scope.NewResolver(s.Tree)
	span, err := resolver.HedgeScope(tree.Position(body.Node), body.Cue, heuristics)
	if err != nil {
		fail(w, &log, http.StatusBadRequest, err, "Could not resolve scope")
		return
	}
	leaves := resolver.Leaves()
	respond(w, &log, ScopeResponse{Span: span, Tokens: leaves[span.Start : span.End+1]})
}

func (req *Request) Attributes(w http.ResponseWriter, r *http.Request) {
	log := makeRequestLogger(r)
	var body sentenceRef
	if !decode(w, r, &log, &body) {
		return
	}

	if req.Cache != nil {
		if _, err := req.Corpus.Document(body.DocumentID); errors.Is(err, corpus.ErrUnknownDocument) {
			attrs, found, err := req.Cache.Get(body.DocumentID, body.SentenceID)
			if err != nil {
				fail(w, &log, http.StatusInternalServerError, err, "Could not read attribute cache")
				return
			}
			if found {
				respond(w, &log, AttributesResponse{Header: types.AttributeHeader, SentenceAttributes: attrs})
				return
			}
		}
	}

	s, ok := req.loadedSentence(w, &log, body)
	if !ok {
		return
	}
	attrs, err := s.Attributes()
	if err != nil {
		fail(w, &log, http.StatusInternalServerError, err, "Could not build attribute table")
		return
	}
	respond(w, &log, AttributesResponse{Header: types.AttributeHeader, SentenceAttributes: attrs})
}

func (req *Request) loadedSentence(w http.ResponseWriter, log *zerolog.Logger, ref sentenceRef) (*corpus.Sentence, bool) {
	s, err := req.Corpus.Sentence(ref.DocumentID, ref.SentenceID)
	switch {
	case errors.Is(err, corpus.ErrUnknownDocument), errors.Is(err, corpus.ErrUnknownSentence):
		fail(w, log, http.StatusNotFound, err, "Unknown sentence")
		return nil, false
	case err != nil:
		fail(w, log, http.StatusInternalServerError, err, "Could not look up sentence")
		return nil, false
	case !s.Loaded:
		fail(w, log, http.StatusConflict, corpus.ErrNotLoaded, "Sentence is not loaded")
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, log *zerolog.Logger, v interface{}) bool {
	if r.Method != http.MethodPost {
		fail(w, log, http.StatusMethodNotAllowed, nil, "Only 'POST' method is allowed here")
		return false
	}
	msg, err := io.ReadAll(r.Body)
	if err != nil {
		fail(w, log, http.StatusBadRequest, err, "Could not read request body")
		return false
	}
	if err := json.Unmarshal(msg, v); err != nil {
		fail(w, log, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, log *zerolog.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Could not write response")
	}
}
