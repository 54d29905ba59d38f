// Package worker polls the durable job queue and dispatches jobs to the
// transcriber service, holding at most a fixed number in flight.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// Queue is a durable queue with a non-blocking pop: the second return is
// false when the queue is empty, which is not an error.
type Queue interface {
	Pop(ctx context.Context) (*domain.QueueMessage, bool, error)
}

// Invoker performs the dispatch call for one job and blocks until the remote
// side finishes or the call is abandoned
type Invoker interface {
	Dispatch(ctx context.Context, msg domain.QueueMessage) error
}

// Config holds dispatcher configuration
type Config struct {
	Logger        *slog.Logger
	Queue         Queue
	Invoker       Invoker
	MaxConcurrent int
	PollInterval  time.Duration
}

// Dispatcher maintains a bounded set of concurrently in-flight job
// executions. Completed executions free capacity by releasing the semaphore;
// each poll cycle fills whatever capacity remains from the queue.
type Dispatcher struct {
	logger       *slog.Logger
	queue        Queue
	invoker      Invoker
	pollInterval time.Duration
	sem          chan struct{}
	wg           sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(cfg *Config) *Dispatcher {
	return &Dispatcher{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		invoker:      cfg.Invoker,
		pollInterval: cfg.PollInterval,
		sem:          make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Run polls the queue until the context is canceled. This is the service's
// main loop; under normal operation it never returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatcher started",
		slog.Int("max_concurrent", cap(d.sem)),
		slog.Duration("poll_interval", d.pollInterval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopping, waiting for in-flight jobs")
			d.wg.Wait()
			d.logger.Info("Dispatcher stopped")
			return nil
		case <-timer.C:
		}

		d.fill(ctx)
		timer.Reset(d.pollInterval)
	}
}

// fill pops jobs while capacity remains and the queue has work
func (d *Dispatcher) fill(ctx context.Context) {
	for {
		select {
		case d.sem <- struct{}{}:
		default:
			// All slots busy; next cycle will retry
			return
		}

		msg, ok, err := d.queue.Pop(ctx)
		if err != nil {
			d.logger.Error("Failed to pop job from queue",
				slog.String("error", err.Error()),
			)
			<-d.sem
			return
		}
		if !ok {
			<-d.sem
			return
		}

		d.wg.Add(1)
		go d.execute(ctx, *msg)

		d.logger.Info("Started processing job",
			slog.String("job_id", msg.JobID),
			slog.String("video_id", msg.VideoID),
		)
	}
}

// execute runs one dispatch call and releases its capacity slot when done
func (d *Dispatcher) execute(ctx context.Context, msg domain.QueueMessage) {
	defer d.wg.Done()
	defer func() { <-d.sem }()

	if err := d.invoker.Dispatch(ctx, msg); err != nil {
		// Best-effort at-least-once dispatch: the job record keeps whatever
		// state the orchestration side last wrote
		d.logger.Error("Job dispatch abandoned",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	d.logger.Info("Job processed successfully",
		slog.String("job_id", msg.JobID),
	)
}
