package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// fakeQueue serves a fixed backlog of messages, then reports empty
type fakeQueue struct {
	mu       sync.Mutex
	backlog  []domain.QueueMessage
	popErr   error
	popCalls int
}

func (q *fakeQueue) Pop(_ context.Context) (*domain.QueueMessage, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.popCalls++
	if q.popErr != nil {
		return nil, false, q.popErr
	}
	if len(q.backlog) == 0 {
		return nil, false, nil
	}
	msg := q.backlog[0]
	q.backlog = q.backlog[1:]
	return &msg, true, nil
}

func (q *fakeQueue) remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// blockingInvoker holds every dispatch until released and tracks concurrency
type blockingInvoker struct {
	release    chan struct{}
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	dispatched atomic.Int32
}

func newBlockingInvoker() *blockingInvoker {
	return &blockingInvoker{release: make(chan struct{})}
}

func (i *blockingInvoker) Dispatch(ctx context.Context, _ domain.QueueMessage) error {
	n := i.inFlight.Add(1)
	defer i.inFlight.Add(-1)
	for {
		prev := i.maxSeen.Load()
		if n <= prev || i.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	i.dispatched.Add(1)

	select {
	case <-i.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestDispatcher(queue Queue, invoker Invoker, maxConcurrent int) *Dispatcher {
	return NewDispatcher(&Config{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Queue:         queue,
		Invoker:       invoker,
		MaxConcurrent: maxConcurrent,
		PollInterval:  5 * time.Millisecond,
	})
}

func TestDispatcherConcurrencyCeiling(t *testing.T) {
	backlog := make([]domain.QueueMessage, 6)
	for i := range backlog {
		backlog[i] = domain.QueueMessage{JobID: "J", VideoID: "V"}
	}
	queue := &fakeQueue{backlog: backlog}
	invoker := newBlockingInvoker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	d := newTestDispatcher(queue, invoker, 5)
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	// Exactly 5 of the 6 jobs start; the last waits for a free slot
	require.Eventually(t, func() bool {
		return invoker.dispatched.Load() == 5
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, queue.remaining())

	// Freeing the in-flight jobs lets the sixth through
	close(invoker.release)
	require.Eventually(t, func() bool {
		return invoker.dispatched.Load() == 6
	}, time.Second, time.Millisecond)

	assert.LessOrEqual(t, invoker.maxSeen.Load(), int32(5))

	cancel()
	<-done
}

func TestDispatcherEmptyQueueKeepsPolling(t *testing.T) {
	queue := &fakeQueue{}
	invoker := newBlockingInvoker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	d := newTestDispatcher(queue, invoker, 5)
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	// An empty queue is not an error; the loop keeps cycling
	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return queue.popCalls >= 3
	}, time.Second, time.Millisecond)
	assert.Zero(t, invoker.dispatched.Load())

	cancel()
	<-done
}

func TestDispatcherSurvivesPopError(t *testing.T) {
	queue := &fakeQueue{popErr: errors.New("connection lost")}
	invoker := newBlockingInvoker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	d := newTestDispatcher(queue, invoker, 2)
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return queue.popCalls >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

type failingInvoker struct {
	calls atomic.Int32
}

func (i *failingInvoker) Dispatch(context.Context, domain.QueueMessage) error {
	i.calls.Add(1)
	return errors.New("remote unavailable")
}

func TestDispatcherAbandonedJobFreesCapacity(t *testing.T) {
	queue := &fakeQueue{backlog: []domain.QueueMessage{
		{JobID: "J1", VideoID: "V1"},
		{JobID: "J2", VideoID: "V2"},
		{JobID: "J3", VideoID: "V3"},
	}}
	invoker := &failingInvoker{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	d := newTestDispatcher(queue, invoker, 1)
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	// Failed dispatches release their slot, so the whole backlog drains
	// through a single-slot dispatcher
	require.Eventually(t, func() bool {
		return invoker.calls.Load() == 3
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}
