package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devwell/backend/internal/middleware"
	"devwell/backend/internal/worker"
)

func TestPool_ProcessesDispatchedItems(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", mock.Anything, "a").Return(nil)
	proc.On("Process", mock.Anything, "b").Return(errors.New("extraction failed"))

	pool := worker.NewPool(proc, 2, 10)
	require.NoError(t, pool.Dispatch(context.Background(), "a"))
	require.NoError(t, pool.Dispatch(context.Background(), "b"))
	require.NoError(t, pool.Shutdown(context.Background()))

	proc.AssertNumberOfCalls(t, "Process", 2)
}

func TestPool_PropagatesCorrelationAndItemID(t *testing.T) {
	proc := new(MockProcessor)
	seen := make(chan context.Context, 1)
	proc.On("Process", mock.Anything, "a").Run(func(args mock.Arguments) {
		seen <- args.Get(0).(context.Context)
	}).Return(nil)

	pool := worker.NewPool(proc, 1, 1)
	ctx := middleware.WithCorrelationID(context.Background(), "req-1")
	require.NoError(t, pool.Dispatch(ctx, "a"))
	require.NoError(t, pool.Shutdown(context.Background()))

	got := <-seen
	assert.Equal(t, "req-1", middleware.GetCorrelationID(got))
	assert.Equal(t, "a", middleware.GetItemID(got))
}

func TestPool_QueueFull(t *testing.T) {
	proc := newBlockingProcessor()
	pool := worker.NewPool(proc, 1, 1)

	require.NoError(t, pool.Dispatch(context.Background(), "running"))
	<-proc.started
	require.NoError(t, pool.Dispatch(context.Background(), "queued"))
	assert.Equal(t, 1, pool.Pending())

	assert.ErrorIs(t, pool.Dispatch(context.Background(), "rejected"), worker.ErrQueueFull)

	close(proc.release)
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"running", "queued"}, proc.finished())
}

func TestPool_DispatchAfterShutdown(t *testing.T) {
	pool := worker.NewPool(new(MockProcessor), 1, 1)
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.ErrorIs(t, pool.Dispatch(context.Background(), "x"), worker.ErrPoolClosed)

	// Shutdown is idempotent.
	assert.NoError(t, pool.Shutdown(context.Background()))
}

func TestPool_ShutdownDeadlineCancelsInFlight(t *testing.T) {
	proc := newBlockingProcessor()
	pool := worker.NewPool(proc, 1, 1)
	require.NoError(t, pool.Dispatch(context.Background(), "stuck"))
	<-proc.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
	assert.Empty(t, proc.finished())
}

func TestPool_SkipsQueuedTasksAfterCancel(t *testing.T) {
	proc := newBlockingProcessor()
	pool := worker.NewPool(proc, 1, 3)
	require.NoError(t, pool.Dispatch(context.Background(), "stuck"))
	<-proc.started
	require.NoError(t, pool.Dispatch(context.Background(), "queued-1"))
	require.NoError(t, pool.Dispatch(context.Background(), "queued-2"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	// Only the in-flight task ever reached the processor.
	assert.Len(t, proc.started, 0)
	assert.Empty(t, proc.finished())
}

func TestPool_RecoversFromPanic(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", mock.Anything, "boom").Run(func(mock.Arguments) { panic("bad input") }).Return(nil)
	proc.On("Process", mock.Anything, "ok").Return(nil)

	pool := worker.NewPool(proc, 1, 2)
	require.NoError(t, pool.Dispatch(context.Background(), "boom"))
	require.NoError(t, pool.Dispatch(context.Background(), "ok"))
	require.NoError(t, pool.Shutdown(context.Background()))

	proc.AssertCalled(t, "Process", mock.Anything, "ok")
}
