package domain

// Job status values. Transitions are monotonic: pending → processing →
// success|failed, and the terminal states are never left.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusSuccess    = "success"
	JobStatusFailed     = "failed"
)

// Error type tags persisted on failed jobs
const (
	ErrTypeDownload      = "DOWNLOAD_ERROR"
	ErrTypeAudio         = "AUDIO_PROCESSING_ERROR"
	ErrTypeTranscription = "TRANSCRIPTION_API_ERROR"
	ErrTypeIncomplete    = "INCOMPLETE_TRANSCRIPTION"
	ErrTypeEmpty         = "EMPTY_TRANSCRIPTION"
	ErrTypeDuplicate     = "DUPLICATE_TRANSCRIPTION"
	ErrTypeDatabase      = "DATABASE_ERROR"
	ErrTypeUnexpected    = "UNEXPECTED_ERROR"
)
