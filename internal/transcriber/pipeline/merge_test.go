package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

func chunkResult(index int, text string, segs ...domain.Segment) domain.ChunkResult {
	return domain.ChunkResult{Index: index, Text: text, Segments: segs}
}

func TestMerge(t *testing.T) {
	t.Run("concatenates texts in chunk order with offsets", func(t *testing.T) {
		results := []domain.ChunkResult{
			chunkResult(1, "a", domain.Segment{ID: 0, Start: 0, End: 10, Text: "a"}),
			chunkResult(2, "b", domain.Segment{ID: 0, Start: 0, End: 20, Text: "b"}),
			chunkResult(3, "c", domain.Segment{ID: 0, Start: 0, End: 15, Text: "c"}),
		}

		text, segments := Merge(results)
		assert.Equal(t, "a b c", text)
		require.Len(t, segments, 3)

		// Chunk 2 shifted by 10, chunk 3 by 30 (cumulative ends)
		assert.Equal(t, 10.0, segments[0].End)
		assert.Equal(t, 10.0, segments[1].Start)
		assert.Equal(t, 30.0, segments[1].End)
		assert.Equal(t, 30.0, segments[2].Start)
		assert.Equal(t, 45.0, segments[2].End)
	})

	t.Run("completion order does not matter", func(t *testing.T) {
		inOrder := []domain.ChunkResult{
			chunkResult(1, "first", domain.Segment{Start: 0, End: 5, Text: "first"}),
			chunkResult(2, "second", domain.Segment{Start: 0, End: 7, Text: "second"}),
			chunkResult(3, "third", domain.Segment{Start: 0, End: 2, Text: "third"}),
		}
		scrambled := []domain.ChunkResult{inOrder[2], inOrder[0], inOrder[1]}

		textA, segmentsA := Merge(inOrder)
		textB, segmentsB := Merge(scrambled)
		assert.Equal(t, textA, textB)
		assert.Equal(t, segmentsA, segmentsB)
	})

	t.Run("multi-segment chunks offset against last segment end", func(t *testing.T) {
		results := []domain.ChunkResult{
			chunkResult(1, "one two",
				domain.Segment{Start: 0, End: 4, Text: "one"},
				domain.Segment{Start: 4, End: 9, Text: "two"},
			),
			chunkResult(2, "three",
				domain.Segment{Start: 0, End: 3, Text: "three"},
			),
		}

		_, segments := Merge(results)
		require.Len(t, segments, 3)
		assert.Equal(t, 9.0, segments[2].Start)
		assert.Equal(t, 12.0, segments[2].End)
	})

	t.Run("zero-segment chunk keeps offset unchanged", func(t *testing.T) {
		results := []domain.ChunkResult{
			chunkResult(1, "spoken", domain.Segment{Start: 0, End: 8, Text: "spoken"}),
			chunkResult(2, "silence"), // no segments
			chunkResult(3, "more", domain.Segment{Start: 0, End: 4, Text: "more"}),
		}

		text, segments := Merge(results)
		assert.Equal(t, "spoken silence more", text)
		require.Len(t, segments, 2)

		// Chunk 3 is offset by chunk 1's end only; the silent chunk did not advance it
		assert.Equal(t, 8.0, segments[1].Start)
		assert.Equal(t, 12.0, segments[1].End)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		text, segments := Merge([]domain.ChunkResult{chunkResult(1, "  hello  ")})
		assert.Equal(t, "hello", text)
		assert.Empty(t, segments)
	})

	t.Run("no results yields empty transcript", func(t *testing.T) {
		text, segments := Merge(nil)
		assert.Empty(t, text)
		assert.Empty(t, segments)
	})
}
