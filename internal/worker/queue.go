package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
	"github.com/transcribee/transcribe-be/shared/rabbitmq"
)

// RabbitQueue adapts the shared RabbitMQ client to the dispatcher's
// non-blocking pop contract
type RabbitQueue struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewRabbitQueue creates a new RabbitQueue
func NewRabbitQueue(client *rabbitmq.Client, logger *slog.Logger) *RabbitQueue {
	return &RabbitQueue{
		client: client,
		logger: logger,
	}
}

// Pop fetches one job descriptor if the queue has work. Messages are
// auto-acked on fetch: dispatch is at-least-once best-effort, and a job lost
// to a crash stays diagnosable through its persisted record.
func (q *RabbitQueue) Pop(_ context.Context) (*domain.QueueMessage, bool, error) {
	body, ok, err := q.client.Get()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get message from queue: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var msg domain.QueueMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		q.logger.Error("Malformed queue message dropped",
			slog.String("body", string(body)),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("malformed queue message: %w", err)
	}

	if msg.JobID == "" || msg.VideoID == "" {
		return nil, false, fmt.Errorf("queue message missing job_id or video_id: %s", string(body))
	}

	return &msg, true, nil
}
