package worker

import (
	"context"
	"errors"
)

var (
	ErrQueueFull  = errors.New("ingestion queue is full")
	ErrPoolClosed = errors.New("ingestion pool is shut down")
)

// Processor runs the ingestion pipeline for one library item.
type Processor interface {
	Process(ctx context.Context, itemID string) error
}

// Publisher is the subset of *nsq.Producer used for dispatch.
type Publisher interface {
	Publish(topic string, body []byte) error
}
