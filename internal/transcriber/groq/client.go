// Package groq implements the speech-to-text provider client. One chunk of
// audio is uploaded per request; the API key is supplied per call so the
// executor can rotate keys between attempts.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// Config holds Groq API client configuration
type Config struct {
	BaseURL string
	Model   string
}

// Client calls the Groq audio transcription endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *slog.Logger
}

// APIError is a non-2xx response from the provider. StatusCode drives the
// executor's retry classification: 5xx is treated as non-transient.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groq API error (status %d): %s", e.StatusCode, e.Message)
}

// IsServerError reports whether err is a provider response in the 500-599 range
func IsServerError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode >= 500 && apiErr.StatusCode < 600
}

// verboseResponse mirrors the verbose_json response format
type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewClient creates a new Groq API client. No request timeout is set: a long
// chunk can legitimately take minutes, and the caller's context bounds the
// call instead.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		logger:     logger,
	}
}

// Transcribe uploads one audio file and returns its transcription with
// chunk-local segment timing
func (c *Client) Transcribe(ctx context.Context, audioPath, apiKey string) (string, []domain.Segment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", nil, fmt.Errorf("failed to copy audio data: %w", err)
	}

	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("temperature", "0")

	if err := writer.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Groq transcription request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("file", filepath.Base(audioPath)),
		)
		return "", nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var parsed verboseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	segments := make([]domain.Segment, len(parsed.Segments))
	for i, s := range parsed.Segments {
		segments[i] = domain.Segment{
			ID:    s.ID,
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		}
	}

	return parsed.Text, segments, nil
}
