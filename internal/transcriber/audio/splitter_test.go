package audio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSmallFilePassthrough(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "video.m4a")
	require.NoError(t, os.WriteFile(audioPath, make([]byte, 1024), 0o644))

	splitter := NewSplitter(&SplitterConfig{
		MaxChunkBytes: 25 * 1024 * 1024,
		ChunkSeconds:  600,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	chunks, err := splitter.Split(context.Background(), audioPath, dir)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// Single chunk keeps the original file and gets the 1-based index
	assert.Equal(t, 1, chunks[0].Index)
	assert.Equal(t, audioPath, chunks[0].Path)
}

func TestSplitMissingFile(t *testing.T) {
	splitter := NewSplitter(&SplitterConfig{
		MaxChunkBytes: 25 * 1024 * 1024,
		ChunkSeconds:  600,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := splitter.Split(context.Background(), "/nonexistent/audio.m4a", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat audio file")
}
