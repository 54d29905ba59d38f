package domain

import "time"

// Segment is one timed span of transcribed speech. After merging, Start and
// End are on the original video timeline.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the persisted result of a successful job. VideoID is the
// natural key; at most one transcript exists per video.
type Transcript struct {
	VideoID    string    `json:"video_id"`
	VideoTitle string    `json:"video_title"`
	FullText   string    `json:"full_text"`
	Segments   []Segment `json:"segments"`
	CreatedAt  time.Time `json:"created_at"`
}
