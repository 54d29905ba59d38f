package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrTranscriptNotFound is returned when no transcript exists for a video
	ErrTranscriptNotFound = errors.New("transcript not found")

	// ErrDuplicateTranscript is returned when inserting a transcript for a
	// video_id that already has one
	ErrDuplicateTranscript = errors.New("transcript already exists for video")

	// ErrNoAPIKeys is returned when a key pool is constructed without keys
	ErrNoAPIKeys = errors.New("no API keys configured")
)
