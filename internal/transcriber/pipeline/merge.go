package pipeline

import (
	"sort"
	"strings"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// Merge reassembles chunk results into a single transcript. Results are
// sorted by chunk index, the canonical temporal order, so the completion
// order of concurrent chunk executions never affects the output.
//
// Segment times are chunk-local; a running offset shifts each chunk's
// segments onto the original video timeline. The offset advances to the end
// of the last segment appended from a chunk. A chunk with no segments leaves
// the offset where it was.
func Merge(results []domain.ChunkResult) (string, []domain.Segment) {
	sorted := append([]domain.ChunkResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	var parts []string
	var merged []domain.Segment
	var timeOffset float64

	for _, chunk := range sorted {
		parts = append(parts, chunk.Text)
		for _, seg := range chunk.Segments {
			seg.Start += timeOffset
			seg.End += timeOffset
			merged = append(merged, seg)
		}
		if len(chunk.Segments) > 0 {
			timeOffset = merged[len(merged)-1].End
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	return text, merged
}
