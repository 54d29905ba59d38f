package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/transcribee/transcribe-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcription-api-service",
		})
	})

	transcriptionHandler := handler.NewTranscriptionHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		transcriptions := v1.Group("/transcriptions")
		{
			// POST /api/v1/transcriptions - Request a video transcription
			transcriptions.POST("", transcriptionHandler.CreateTranscription)

			// GET /api/v1/transcriptions/status/:job_id - Poll job status
			transcriptions.GET("/status/:job_id", transcriptionHandler.GetJobStatus)
		}
	}

	return r
}
