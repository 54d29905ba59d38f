// Package pipeline contains the chunked-execution core: the per-chunk
// transcription executor, the ordered merge of partial results, and the
// orchestrator that drives a job through its state machine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
	"github.com/transcribee/transcribe-be/internal/transcriber/groq"
	"github.com/transcribee/transcribe-be/internal/transcriber/keypool"
)

const (
	// MaxChunkRetries bounds transcription attempts per chunk
	MaxChunkRetries = 3

	// InitialBackoff is the delay before the first retry; it doubles per attempt
	InitialBackoff = 2 * time.Second
)

// Provider is the external speech-to-text call
type Provider interface {
	Transcribe(ctx context.Context, audioPath, apiKey string) (string, []domain.Segment, error)
}

// Executor transcribes one chunk with bounded retries and credential failover.
// A provider error in the 500-599 range short-circuits: an overloaded provider
// is not worth this job's retry budget.
type Executor struct {
	provider Provider
	keys     *keypool.Pool
	logger   *slog.Logger

	maxRetries     int
	initialBackoff time.Duration
}

// NewExecutor creates a chunk executor over the shared key pool
func NewExecutor(provider Provider, keys *keypool.Pool, logger *slog.Logger) *Executor {
	return &Executor{
		provider:       provider,
		keys:           keys,
		logger:         logger,
		maxRetries:     MaxChunkRetries,
		initialBackoff: InitialBackoff,
	}
}

// Run transcribes the chunk using its assigned key, rotating to a new key on
// transient failure. The returned error carries the last provider error once
// retries or alternative keys are exhausted.
func (e *Executor) Run(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
	apiKey := chunk.APIKey
	backoff := e.initialBackoff

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		text, segments, err := e.provider.Transcribe(ctx, chunk.Path, apiKey)
		if err == nil {
			return &domain.ChunkResult{
				Index:    chunk.Index,
				Text:     text,
				Segments: segments,
			}, nil
		}

		lastErr = err
		e.logger.Error("Chunk transcription attempt failed",
			slog.Int("chunk_index", chunk.Index),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if groq.IsServerError(err) {
			return nil, fmt.Errorf("provider server error on chunk %d: %w", chunk.Index, err)
		}

		if attempt == e.maxRetries {
			break
		}

		newKey, ok := e.keys.AcquireExcluding(apiKey)
		if !ok {
			e.logger.Error("No alternative API keys available for retry",
				slog.Int("chunk_index", chunk.Index),
			)
			return nil, fmt.Errorf("no alternative API keys for chunk %d: %w", chunk.Index, lastErr)
		}
		apiKey = newKey

		if err := e.wait(ctx, backoff+jitter()); err != nil {
			return nil, err
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("all transcription attempts failed for chunk %d: %w", chunk.Index, lastErr)
}

// wait sleeps for d or until the job is canceled by a fatal sibling failure
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter returns a random delay in [0,1) seconds to desynchronize retries
func jitter() time.Duration {
	return time.Duration(rand.Float64() * float64(time.Second))
}
