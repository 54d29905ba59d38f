package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
	"github.com/transcribee/transcribe-be/shared/postgresql"
)

// Storage handles intake-side database access: job creation and read-only
// lookups of jobs and transcripts
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateJob inserts a new job record in its initial pending state
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, video_id, status, fail_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.VideoID,
		job.Status,
		job.FailCount,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

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

// transcriptRow maps the transcripts table, with segments as stored JSON
type transcriptRow struct {
	VideoID    string       `db:"video_id"`
	VideoTitle string       `db:"video_title"`
	FullText   string       `db:"full_text"`
	Segments   []byte       `db:"segments"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

// FindTranscript retrieves the transcript for a video, if one exists
func (s *Storage) FindTranscript(ctx context.Context, videoID string) (*domain.Transcript, error) {
	query := `
		SELECT video_id, video_title, full_text, segments, created_at
		FROM transcripts
		WHERE video_id = $1
	`

	var row transcriptRow
	if err := s.db.GetContext(ctx, &row, query, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	transcript := &domain.Transcript{
		VideoID:    row.VideoID,
		VideoTitle: row.VideoTitle,
		FullText:   row.FullText,
	}
	if row.CreatedAt.Valid {
		transcript.CreatedAt = row.CreatedAt.Time
	}
	if len(row.Segments) > 0 {
		if err := json.Unmarshal(row.Segments, &transcript.Segments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal segments: %w", err)
		}
	}

	return transcript, nil
}
