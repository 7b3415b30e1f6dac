package tasks

import (
	"errors"
	"fmt"
	"time"

	"text2phenotype.com/bioscope/redis"
	"text2phenotype.com/bioscope/types"
	"text2phenotype.com/bioscope/utils"
)

const AttributesDB redis.DB = 1

const attributesExpiration = 7 * 24 * time.Hour

// AttributeCache keeps the attribute tables of processed sentences.
type AttributeCache struct {
	client redis.Client
}

// AttributesKey fingerprints a sentence so that ids with separators in them
// never collide.
func AttributesKey(docID string, sentenceID string) string {
	return fmt.Sprintf("attributes:%016x", utils.HashStrings(docID, sentenceID))
}

func (cache AttributeCache) Put(attrs types.SentenceAttributes) error {
	return cache.client.SaveJSON(AttributesKey(attrs.DocumentID, attrs.SentenceID), attrs, attributesExpiration)
}

// Get returns the cached table of a sentence; ok is false on a cache miss.
func (cache AttributeCache) Get(docID string, sentenceID string) (attrs types.SentenceAttributes, ok bool, err error) {
	err = cache.client.GetJSON(AttributesKey(docID, sentenceID), &attrs)
	if isNotFound(err) {
		return attrs, false, nil
	}
	if err != nil {
		return attrs, false, err
	}
	return attrs, true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, redis.ErrNotFound)
}
