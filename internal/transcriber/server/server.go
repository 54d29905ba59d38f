// Package server exposes the orchestration pipeline over HTTP. The worker
// service dispatches jobs here; the call is synchronous and can run for hours
// on long videos.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Orchestrator runs one job end to end, ending in a persisted terminal state
type Orchestrator interface {
	Process(ctx context.Context, jobID, videoID string)
}

// ProcessRequest is the dispatch payload
type ProcessRequest struct {
	JobID   string `json:"job_id" binding:"required"`
	VideoID string `json:"video_id" binding:"required"`
}

// Handler serves the dispatch target endpoint
type Handler struct {
	logger *slog.Logger
	orch   Orchestrator
}

// NewHandler creates a new Handler
func NewHandler(logger *slog.Logger, orch Orchestrator) *Handler {
	return &Handler{
		logger: logger,
		orch:   orch,
	}
}

// SetupRouter configures the gin router for the transcriber service
func SetupRouter(logger *slog.Logger, orch Orchestrator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewHandler(logger, orch)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcriber-service",
		})
	})

	r.POST("/process_transcription", h.ProcessTranscription)

	return r
}

// ProcessTranscription handles POST /process_transcription. It blocks until
// the job reaches a terminal state; the response reports only that processing
// ran, the outcome lives on the job record.
func (h *Handler) ProcessTranscription(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid process request",
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request data.",
		})
		return
	}

	h.logger.Info("Dispatch received",
		slog.String("job_id", req.JobID),
		slog.String("video_id", req.VideoID),
	)

	h.orch.Process(c.Request.Context(), req.JobID, req.VideoID)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Transcription processed.",
	})
}
