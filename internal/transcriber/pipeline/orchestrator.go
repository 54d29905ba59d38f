package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
	"github.com/transcribee/transcribe-be/internal/transcriber/keypool"
)

// JobStore persists job lifecycle state. Every write is an absolute-value
// set: at-least-once dispatch means two orchestrations can race on one
// job_id, and absolute writes converge where read-modify-write would corrupt.
type JobStore interface {
	SetStatus(ctx context.Context, jobID, status string) error
	SetFailed(ctx context.Context, jobID, errMsg, errType string) error
}

// TranscriptStore persists completed transcripts. Insert returns
// domain.ErrDuplicateTranscript when the video already has one.
type TranscriptStore interface {
	Insert(ctx context.Context, transcript *domain.Transcript) error
}

// AudioSource acquires a video's audio track onto local disk
type AudioSource interface {
	Acquire(ctx context.Context, videoID, destDir string) (*domain.AudioFile, error)
}

// AudioSplitter slices an audio file into 1-based indexed chunks
type AudioSplitter interface {
	Split(ctx context.Context, audioPath, workDir string) ([]domain.Chunk, error)
}

// ChunkExecutor transcribes one chunk, retries and failover included
type ChunkExecutor interface {
	Run(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error)
}

// Config holds orchestrator dependencies
type Config struct {
	Logger      *slog.Logger
	Jobs        JobStore
	Transcripts TranscriptStore
	Source      AudioSource
	Splitter    AudioSplitter
	Executor    ChunkExecutor
	Keys        *keypool.Pool
}

// Orchestrator runs one job through download, chunking, concurrent
// transcription, merge, and persistence, writing the job record at every
// transition. No error escapes Process: every path ends in a status write.
type Orchestrator struct {
	logger      *slog.Logger
	jobs        JobStore
	transcripts TranscriptStore
	source      AudioSource
	splitter    AudioSplitter
	executor    ChunkExecutor
	keys        *keypool.Pool
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(cfg *Config) *Orchestrator {
	return &Orchestrator{
		logger:      cfg.Logger,
		jobs:        cfg.Jobs,
		transcripts: cfg.Transcripts,
		source:      cfg.Source,
		splitter:    cfg.Splitter,
		executor:    cfg.Executor,
		keys:        cfg.Keys,
	}
}

// Process executes the full pipeline for one job
func (o *Orchestrator) Process(ctx context.Context, jobID, videoID string) {
	start := time.Now()
	o.logger.Info("Processing transcription job",
		slog.String("job_id", jobID),
		slog.String("video_id", videoID),
	)

	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, jobID, domain.ErrTypeUnexpected,
				fmt.Sprintf("unexpected error during transcription: %v", r))
		}
		o.logger.Info("Job processing finished",
			slog.String("job_id", jobID),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()

	if err := o.jobs.SetStatus(ctx, jobID, domain.JobStatusProcessing); err != nil {
		o.logger.Error("Failed to mark job processing",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	workDir, err := os.MkdirTemp("", "transcription_temp_")
	if err != nil {
		o.fail(ctx, jobID, domain.ErrTypeUnexpected,
			fmt.Sprintf("failed to create working directory: %s", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			o.logger.Error("Failed to clean up working directory",
				slog.String("job_id", jobID),
				slog.String("dir", workDir),
				slog.String("error", err.Error()),
			)
		}
	}()

	audioFile, err := o.source.Acquire(ctx, videoID, workDir)
	if err != nil {
		o.fail(ctx, jobID, domain.ErrTypeDownload,
			fmt.Sprintf("failed to download audio: %s", err))
		return
	}

	chunks, err := o.splitter.Split(ctx, audioFile.Path, workDir)
	if err != nil {
		o.fail(ctx, jobID, domain.ErrTypeAudio,
			fmt.Sprintf("failed to process audio file: %s", err))
		return
	}
	if len(chunks) == 0 {
		o.fail(ctx, jobID, domain.ErrTypeAudio, "no valid audio chunks to process")
		return
	}

	for i := range chunks {
		chunks[i].APIKey = o.keys.Acquire()
	}

	results, err := o.runChunks(ctx, chunks)
	if err != nil {
		o.fail(ctx, jobID, domain.ErrTypeTranscription,
			fmt.Sprintf("transcription failed: %s", err))
		return
	}

	if len(results) != len(chunks) {
		o.fail(ctx, jobID, domain.ErrTypeIncomplete,
			fmt.Sprintf("incomplete transcription: expected %d chunks, got %d", len(chunks), len(results)))
		return
	}

	text, segments := Merge(results)
	if text == "" {
		o.fail(ctx, jobID, domain.ErrTypeEmpty, "generated transcript is empty")
		return
	}

	transcript := &domain.Transcript{
		VideoID:    videoID,
		VideoTitle: audioFile.Title,
		FullText:   text,
		Segments:   segments,
		CreatedAt:  time.Now().UTC(),
	}

	if err := o.transcripts.Insert(ctx, transcript); err != nil {
		if errors.Is(err, domain.ErrDuplicateTranscript) {
			o.fail(ctx, jobID, domain.ErrTypeDuplicate,
				fmt.Sprintf("transcript for video %s already exists", videoID))
		} else {
			o.fail(ctx, jobID, domain.ErrTypeDatabase,
				fmt.Sprintf("database error while saving transcript: %s", err))
		}
		return
	}

	if err := o.jobs.SetStatus(ctx, jobID, domain.JobStatusSuccess); err != nil {
		o.logger.Error("Failed to mark job success",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	o.logger.Info("Transcription job succeeded",
		slog.String("job_id", jobID),
		slog.String("video_id", videoID),
		slog.Int("chunks", len(chunks)),
		slog.Int("segments", len(segments)),
	)
}

// runChunks fans chunk executions out to a worker set bounded by the key pool
// size and collects results. The first fatal chunk failure cancels the shared
// context so in-flight siblings abort instead of running to a discarded
// result, and the error is returned without waiting for the rest.
func (o *Orchestrator) runChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.ChunkResult, error) {
	chunkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result *domain.ChunkResult
		err    error
	}

	sem := make(chan struct{}, o.keys.Size())
	outcomes := make(chan outcome, len(chunks))

	for _, chunk := range chunks {
		go func(chunk domain.Chunk) {
			select {
			case sem <- struct{}{}:
			case <-chunkCtx.Done():
				outcomes <- outcome{err: chunkCtx.Err()}
				return
			}
			defer func() { <-sem }()

			result, err := o.executor.Run(chunkCtx, chunk)
			outcomes <- outcome{result: result, err: err}
		}(chunk)
	}

	results := make([]domain.ChunkResult, 0, len(chunks))
	for range chunks {
		out := <-outcomes
		if out.err != nil {
			cancel()
			return nil, out.err
		}
		results = append(results, *out.result)
	}

	return results, nil
}

// fail marks the job failed with its tagged reason
func (o *Orchestrator) fail(ctx context.Context, jobID, errType, errMsg string) {
	o.logger.Error("Transcription job failed",
		slog.String("job_id", jobID),
		slog.String("error_type", errType),
		slog.String("error", errMsg),
	)

	if err := o.jobs.SetFailed(ctx, jobID, errMsg, errType); err != nil {
		o.logger.Error("Failed to persist job failure",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
