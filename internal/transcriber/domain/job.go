package domain

import "time"

// Job tracks one transcription request through its lifecycle
type Job struct {
	JobID     string    `db:"job_id"`
	VideoID   string    `db:"video_id"`
	Status    string    `db:"status"`
	FailCount int       `db:"fail_count"`
	Error     string    `db:"error"`
	ErrorType string    `db:"error_type"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// QueueMessage is the job descriptor carried on the durable queue
type QueueMessage struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
}
