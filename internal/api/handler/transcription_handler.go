package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/transcribee/transcribe-be/internal/api/dto"
	"github.com/transcribee/transcribe-be/internal/api/validate"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// CreateTranscription handles POST /api/v1/transcriptions.
// An already-transcribed video is answered immediately; otherwise a pending
// job is created and enqueued for the worker service.
func (h *TranscriptionHandler) CreateTranscription(c *gin.Context) {
	var req dto.CreateTranscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !validate.IsYouTubeURL(req.YouTubeURL) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid YouTube URL.",
		})
		return
	}

	videoID, ok := validate.ExtractVideoID(req.YouTubeURL)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Could not extract video ID from the URL.",
		})
		return
	}

	// Transcript already on file means no new job
	existing, err := h.transcripts.FindTranscript(c.Request.Context(), videoID)
	if err == nil {
		c.JSON(http.StatusOK, dto.TranscriptionResponse{
			Status:           "completed",
			VideoID:          existing.VideoID,
			VideoTitle:       existing.VideoTitle,
			TranscriptionRaw: existing.FullText,
			Transcription: &dto.TranscriptPayload{
				Text:     existing.FullText,
				Segments: existing.Segments,
			},
		})
		return
	}
	if !errors.Is(err, domain.ErrTranscriptNotFound) {
		h.logger.Error("Failed to look up transcript",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
		return
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:     uuid.New().String(),
		VideoID:   videoID,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.jobs.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
		return
	}

	body, err := json.Marshal(domain.QueueMessage{
		JobID:   job.JobID,
		VideoID: job.VideoID,
	})
	if err != nil {
		h.logger.Error("Failed to marshal queue message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
		return
	}

	if err := h.queue.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
		return
	}

	h.logger.Info("Transcription job accepted",
		slog.String("job_id", job.JobID),
		slog.String("video_id", videoID),
	)

	c.JSON(http.StatusAccepted, dto.TranscriptionResponse{
		Status: "accepted",
		JobID:  job.JobID,
	})
}

// GetJobStatus handles GET /api/v1/transcriptions/status/:job_id
func (h *TranscriptionHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found.",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
		return
	}

	switch job.Status {
	case domain.JobStatusSuccess:
		transcript, err := h.transcripts.FindTranscript(c.Request.Context(), job.VideoID)
		if err != nil {
			// Terminal job with no transcript row still reports success
			c.JSON(http.StatusOK, dto.JobStatusResponse{
				Status: domain.JobStatusSuccess,
			})
			return
		}
		c.JSON(http.StatusOK, dto.JobStatusResponse{
			Status:           domain.JobStatusSuccess,
			VideoID:          transcript.VideoID,
			VideoTitle:       transcript.VideoTitle,
			TranscriptionRaw: transcript.FullText,
			Transcription: &dto.TranscriptPayload{
				Text:     transcript.FullText,
				Segments: transcript.Segments,
			},
		})
	case domain.JobStatusFailed:
		errMsg := job.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		c.JSON(http.StatusOK, dto.JobStatusResponse{
			Status: domain.JobStatusFailed,
			Error:  errMsg,
		})
	default:
		c.JSON(http.StatusOK, dto.JobStatusResponse{
			Status: job.Status,
		})
	}
}
