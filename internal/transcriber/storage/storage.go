// Package storage persists job lifecycle state and finished transcripts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations
const pgUniqueViolation = "23505"

// Storage handles all database operations for the transcriber service
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// SetStatus writes an absolute job status. The guard on terminal states keeps
// transitions monotonic: a replayed dispatch racing a finished job becomes a
// no-op instead of resurrecting it.
func (s *Storage) SetStatus(ctx context.Context, jobID, status string) error {
	query := `
		UPDATE jobs
		SET status = $2,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND status NOT IN ($3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, jobID, status, domain.JobStatusSuccess, domain.JobStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// SetFailed marks the job failed with its tagged reason and bumps fail_count.
// Same terminal guard as SetStatus: concurrent failure writes converge on
// whichever landed first.
func (s *Storage) SetFailed(ctx context.Context, jobID, errMsg, errType string) error {
	query := `
		UPDATE jobs
		SET status = $2,
		    error = $3,
		    error_type = $4,
		    fail_count = fail_count + 1,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND status NOT IN ($2, $5)
	`

	_, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusFailed, errMsg, errType, domain.JobStatusSuccess)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Info("Job marked failed",
		slog.String("job_id", jobID),
		slog.String("error_type", errType),
	)

	return nil
}

// GetJob retrieves a job by its ID
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT job_id, video_id, status, fail_count,
		       COALESCE(error, '') AS error,
		       COALESCE(error_type, '') AS error_type,
		       created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// Insert persists a completed transcript. The primary key on video_id makes a
// duplicate insert a distinguishable failure rather than a second row.
func (s *Storage) Insert(ctx context.Context, t *domain.Transcript) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	query := `
		INSERT INTO transcripts (video_id, video_title, full_text, segments, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.ExecContext(ctx, query, t.VideoID, t.VideoTitle, t.FullText, segments, t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateTranscript
		}
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	s.logger.Info("Transcript inserted",
		slog.String("video_id", t.VideoID),
		slog.Int("segments", len(t.Segments)),
	)

	return nil
}
