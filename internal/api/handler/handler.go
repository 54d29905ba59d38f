package handler

import (
	"context"
	"log/slog"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// JobStore is the intake view of the job record store
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// TranscriptFinder looks up existing transcripts by video id
type TranscriptFinder interface {
	FindTranscript(ctx context.Context, videoID string) (*domain.Transcript, error)
}

// Enqueuer pushes job descriptors onto the durable queue
type Enqueuer interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Jobs        JobStore
	Transcripts TranscriptFinder
	Queue       Enqueuer
}

// TranscriptionHandler handles transcription intake HTTP requests
type TranscriptionHandler struct {
	logger      *slog.Logger
	jobs        JobStore
	transcripts TranscriptFinder
	queue       Enqueuer
}

// NewTranscriptionHandler creates a new TranscriptionHandler instance
func NewTranscriptionHandler(deps *Dependencies) *TranscriptionHandler {
	return &TranscriptionHandler{
		logger:      deps.Logger,
		jobs:        deps.Jobs,
		transcripts: deps.Transcripts,
		queue:       deps.Queue,
	}
}
