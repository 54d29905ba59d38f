package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
	"github.com/transcribee/transcribe-be/internal/transcriber/groq"
	"github.com/transcribee/transcribe-be/internal/transcriber/keypool"
)

type fakeJobStore struct {
	mu        sync.Mutex
	statuses  []string
	failedMsg string
	failedTag string
	failCalls int
}

func (s *fakeJobStore) SetStatus(_ context.Context, _, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeJobStore) SetFailed(_ context.Context, _, errMsg, errType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, domain.JobStatusFailed)
	s.failedMsg = errMsg
	s.failedTag = errType
	s.failCalls++
	return nil
}

func (s *fakeJobStore) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

type fakeTranscriptStore struct {
	mu       sync.Mutex
	inserted *domain.Transcript
	err      error
}

func (s *fakeTranscriptStore) Insert(_ context.Context, t *domain.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.inserted = t
	return nil
}

type fakeSource struct {
	file  *domain.AudioFile
	err   error
	panic bool
}

func (s *fakeSource) Acquire(_ context.Context, _, _ string) (*domain.AudioFile, error) {
	if s.panic {
		panic("downloader went sideways")
	}
	return s.file, s.err
}

type fakeSplitter struct {
	chunks []domain.Chunk
	err    error
}

func (s *fakeSplitter) Split(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return s.chunks, s.err
}

type fakeChunkExecutor struct {
	run func(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error)
}

func (e *fakeChunkExecutor) Run(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
	return e.run(ctx, chunk)
}

type orchestratorFixture struct {
	jobs        *fakeJobStore
	transcripts *fakeTranscriptStore
	source      *fakeSource
	splitter    *fakeSplitter
	executor    *fakeChunkExecutor
	orch        *Orchestrator
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	pool, err := keypool.New([]string{"k1", "k2", "k3"})
	require.NoError(t, err)

	f := &orchestratorFixture{
		jobs:        &fakeJobStore{},
		transcripts: &fakeTranscriptStore{},
		source: &fakeSource{
			file: &domain.AudioFile{Path: "audio.m4a", Title: "Test Video", Size: 1024},
		},
		splitter: &fakeSplitter{
			chunks: []domain.Chunk{{Index: 1, Path: "c1"}, {Index: 2, Path: "c2"}, {Index: 3, Path: "c3"}},
		},
	}
	f.executor = &fakeChunkExecutor{
		run: func(_ context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
			texts := map[int]string{1: "a", 2: "b", 3: "c"}
			ends := map[int]float64{1: 10, 2: 20, 3: 15}
			return &domain.ChunkResult{
				Index: chunk.Index,
				Text:  texts[chunk.Index],
				Segments: []domain.Segment{
					{Start: 0, End: ends[chunk.Index], Text: texts[chunk.Index]},
				},
			}, nil
		},
	}

	f.orch = NewOrchestrator(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Jobs:        f.jobs,
		Transcripts: f.transcripts,
		Source:      f.source,
		Splitter:    f.splitter,
		Executor:    f.executor,
		Keys:        pool,
	})
	return f
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, []string{domain.JobStatusProcessing, domain.JobStatusSuccess}, f.jobs.statuses)

	transcript := f.transcripts.inserted
	require.NotNil(t, transcript)
	assert.Equal(t, "V1", transcript.VideoID)
	assert.Equal(t, "Test Video", transcript.VideoTitle)
	assert.Equal(t, "a b c", transcript.FullText)

	// Cumulative offsets: chunk 2 shifted by 10, chunk 3 by 30
	require.Len(t, transcript.Segments, 3)
	assert.Equal(t, 10.0, transcript.Segments[1].Start)
	assert.Equal(t, 30.0, transcript.Segments[1].End)
	assert.Equal(t, 30.0, transcript.Segments[2].Start)
	assert.Equal(t, 45.0, transcript.Segments[2].End)
}

func TestProcessChunkKeysAssignedFromPool(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	seen := map[string]bool{}
	inner := f.executor.run
	f.executor.run = func(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
		mu.Lock()
		seen[chunk.APIKey] = true
		mu.Unlock()
		return inner(ctx, chunk)
	}

	f.orch.Process(context.Background(), "J1", "V1")

	// Three chunks over a three-key pool: rotation hands each chunk its own key
	assert.Len(t, seen, 3)
}

func TestProcessFatalChunkFailsJobAndCancelsSiblings(t *testing.T) {
	f := newFixture(t)
	f.executor.run = func(ctx context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
		if chunk.Index == 2 {
			return nil, fmt.Errorf("provider server error on chunk 2: %w",
				&groq.APIError{StatusCode: http.StatusServiceUnavailable, Message: "boom"})
		}
		// Siblings block until the fatal failure cancels the job context
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeTranscription, f.jobs.failedTag)
	assert.Contains(t, f.jobs.failedMsg, "provider server error on chunk 2")
	assert.Equal(t, 1, f.jobs.failCalls)
	assert.Nil(t, f.transcripts.inserted)
}

func TestProcessDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.source.file = nil
	f.source.err = errors.New("video unavailable")

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeDownload, f.jobs.failedTag)
}

func TestProcessSplitterFailure(t *testing.T) {
	f := newFixture(t)
	f.splitter.chunks = nil
	f.splitter.err = errors.New("corrupted container")

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeAudio, f.jobs.failedTag)
}

func TestProcessNoChunks(t *testing.T) {
	f := newFixture(t)
	f.splitter.chunks = []domain.Chunk{}

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeAudio, f.jobs.failedTag)
}

func TestProcessEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	f.executor.run = func(_ context.Context, chunk domain.Chunk) (*domain.ChunkResult, error) {
		return &domain.ChunkResult{Index: chunk.Index, Text: "   "}, nil
	}

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeEmpty, f.jobs.failedTag)
	assert.Nil(t, f.transcripts.inserted)
}

func TestProcessDuplicateTranscript(t *testing.T) {
	f := newFixture(t)
	f.transcripts.err = domain.ErrDuplicateTranscript

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeDuplicate, f.jobs.failedTag)
}

func TestProcessDatabaseError(t *testing.T) {
	f := newFixture(t)
	f.transcripts.err = errors.New("connection refused")

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeDatabase, f.jobs.failedTag)
}

func TestProcessPanicBecomesUnexpectedError(t *testing.T) {
	f := newFixture(t)
	f.source.panic = true

	f.orch.Process(context.Background(), "J1", "V1")

	assert.Equal(t, domain.JobStatusFailed, f.jobs.lastStatus())
	assert.Equal(t, domain.ErrTypeUnexpected, f.jobs.failedTag)
	assert.Contains(t, f.jobs.failedMsg, "downloader went sideways")
}

func TestProcessAlwaysReachesTerminalState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *orchestratorFixture)
	}{
		{"success path", func(*orchestratorFixture) {}},
		{"download failure", func(f *orchestratorFixture) { f.source.err = errors.New("x") }},
		{"splitter failure", func(f *orchestratorFixture) { f.splitter.err = errors.New("x") }},
		{"store failure", func(f *orchestratorFixture) { f.transcripts.err = errors.New("x") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			f.orch.Process(context.Background(), "J1", "V1")

			last := f.jobs.lastStatus()
			assert.Contains(t, []string{domain.JobStatusSuccess, domain.JobStatusFailed}, last)
		})
	}
}
