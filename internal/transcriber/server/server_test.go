package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOrchestrator struct {
	jobID   string
	videoID string
	called  bool
}

func (r *recordingOrchestrator) Process(_ context.Context, jobID, videoID string) {
	r.called = true
	r.jobID = jobID
	r.videoID = videoID
}

func performRequest(t *testing.T, orch Orchestrator, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := SetupRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), orch)

	req := httptest.NewRequest(http.MethodPost, "/process_transcription", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProcessTranscription(t *testing.T) {
	orch := &recordingOrchestrator{}
	w := performRequest(t, orch, `{"job_id": "J1", "video_id": "V1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, orch.called)
	assert.Equal(t, "J1", orch.jobID)
	assert.Equal(t, "V1", orch.videoID)
}

func TestProcessTranscriptionInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing video_id", `{"job_id": "J1"}`},
		{"missing job_id", `{"video_id": "V1"}`},
		{"not json", `not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &recordingOrchestrator{}
			w := performRequest(t, orch, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, orch.called)
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), &recordingOrchestrator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
