package worker_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockProcessor struct{ mock.Mock }

func (m *MockProcessor) Process(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

// blockingProcessor holds every task until release is closed.
type blockingProcessor struct {
	started chan string
	release chan struct{}

	mu   sync.Mutex
	done []string
}

func newBlockingProcessor() *blockingProcessor {
	return &blockingProcessor{started: make(chan string, 100), release: make(chan struct{})}
}

func (p *blockingProcessor) Process(ctx context.Context, itemID string) error {
	p.started <- itemID
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.Lock()
	p.done = append(p.done, itemID)
	p.mu.Unlock()
	return nil
}

func (p *blockingProcessor) finished() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.done...)
}
