package tasks

import (
	"text2phenotype.com/bioscope/redis"
)

type Client struct {
	Documents  DocumentTasks
	Attributes AttributeCache
}

// NewClient is a preferred way for working with document tasks
func NewClient() (Client, error) {
	docRedisClient, err := redis.NewClient(DocumentsDB)
	if err != nil {
		return Client{}, err
	}
	attrRedisClient, err := redis.NewClient(AttributesDB)
	if err != nil {
		_ = docRedisClient.Close()
		return Client{}, err
	}
	return Client{
		Documents:  DocumentTasks{client: docRedisClient},
		Attributes: AttributeCache{client: attrRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Documents.client.Close()
	_ = client.Attributes.client.Close()
}
