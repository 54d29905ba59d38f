package domain

// Chunk is a contiguous time slice of a job's audio. Chunks are transient:
// produced by the splitter, consumed by the chunk executor, deleted with the
// job's working directory. Index is 1-based and defines canonical ordering.
type Chunk struct {
	Index  int
	Path   string
	APIKey string
}

// ChunkResult is the transcription of a single chunk. Segment times are
// chunk-local until the merge shifts them onto the video timeline.
type ChunkResult struct {
	Index    int
	Text     string
	Segments []Segment
}

// AudioFile describes a downloaded audio track on local disk
type AudioFile struct {
	Path  string
	Title string
	Size  int64
}
