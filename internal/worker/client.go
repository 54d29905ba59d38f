package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// ClientConfig holds dispatch call settings
type ClientConfig struct {
	Endpoint       string        // transcriber service process_transcription URL
	MaxRetries     int           // attempts per job
	RetryDelay     time.Duration // fixed delay between attempts
	RequestTimeout time.Duration // per-request ceiling; large jobs run for hours
}

// Client invokes the transcriber service for one job. Its retry policy guards
// only the dispatch call itself; chunk-level retries live in the pipeline.
type Client struct {
	httpClient *http.Client
	endpoint   string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a new dispatch client
func NewClient(cfg *ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.Endpoint,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Dispatch posts the job descriptor and retries on transport errors or
// non-success responses with a fixed delay. After the final attempt the error
// is returned and the job is abandoned to whatever state the remote side
// last persisted.
func (c *Client) Dispatch(ctx context.Context, msg domain.QueueMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}

		c.logger.Warn("Dispatch attempt failed",
			slog.String("job_id", msg.JobID),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.maxRetries),
			slog.String("error", lastErr.Error()),
		)

		if attempt < c.maxRetries {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("dispatch failed after %d attempts: %w", c.maxRetries, lastErr)
}

// post performs one dispatch request
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch returned status %d", resp.StatusCode)
	}

	return nil
}
