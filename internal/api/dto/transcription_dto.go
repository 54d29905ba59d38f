package dto

import "github.com/transcribee/transcribe-be/internal/transcriber/domain"

type CreateTranscriptionRequest struct {
	YouTubeURL string `json:"youtube_url" binding:"required"`
}

// TranscriptPayload carries the merged transcript in API responses
type TranscriptPayload struct {
	Text     string           `json:"text"`
	Segments []domain.Segment `json:"segments"`
}

type TranscriptionResponse struct {
	Status           string             `json:"status"`
	JobID            string             `json:"job_id,omitempty"`
	VideoID          string             `json:"video_id,omitempty"`
	VideoTitle       string             `json:"video_title,omitempty"`
	TranscriptionRaw string             `json:"transcription_raw,omitempty"`
	Transcription    *TranscriptPayload `json:"transcription,omitempty"`
}

type JobStatusResponse struct {
	Status           string             `json:"status"`
	VideoID          string             `json:"video_id,omitempty"`
	VideoTitle       string             `json:"video_title,omitempty"`
	TranscriptionRaw string             `json:"transcription_raw,omitempty"`
	Transcription    *TranscriptPayload `json:"transcription,omitempty"`
	Error            string             `json:"error,omitempty"`
}
