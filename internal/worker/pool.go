package worker

import (
	"context"
	"log/slog"
	"sync"

	"devwell/backend/internal/middleware"
)

// Pool runs ingestion tasks on a fixed number of goroutines fed by a bounded
// queue. Dispatch never blocks: a full queue is reported as ErrQueueFull.
type Pool struct {
	proc  Processor
	tasks chan IngestTask

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(proc Processor, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		proc:   proc,
		tasks:  make(chan IngestTask, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *Pool) Dispatch(ctx context.Context, itemID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	task := IngestTask{ItemID: itemID, CorrelationID: middleware.GetCorrelationID(ctx)}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) run(n int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.handle(n, task)
	}
}

func (p *Pool) handle(n int, task IngestTask) {
	ctx := middleware.WithItemID(p.ctx, task.ItemID)
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	if p.ctx.Err() != nil {
		slog.InfoContext(ctx, "pool stopped, leaving task for resume", "worker", n)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "ingestion worker panic", "worker", n, "panic", r)
		}
	}()

	if err := p.proc.Process(ctx, task.ItemID); err != nil {
		slog.WarnContext(ctx, "ingestion task failed", "worker", n, "error", err)
	}
}

// Shutdown stops accepting work and waits for queued tasks to finish. When
// ctx expires first, in-flight tasks are cancelled and ctx.Err is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Pending reports how many tasks are queued but not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}
