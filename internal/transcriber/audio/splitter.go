package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// SplitterConfig holds ffmpeg chunking settings
type SplitterConfig struct {
	BinPath       string // ffmpeg binary, defaults to "ffmpeg"
	MaxChunkBytes int64  // files at or under this size are passed through unsplit
	ChunkSeconds  int    // segment duration when splitting is required
}

// Splitter cuts an audio file into contiguous, non-overlapping time slices
// using ffmpeg stream copy (no re-encode)
type Splitter struct {
	binPath       string
	maxChunkBytes int64
	chunkSeconds  int
	logger        *slog.Logger
}

// NewSplitter creates a new Splitter
func NewSplitter(cfg *SplitterConfig, logger *slog.Logger) *Splitter {
	binPath := cfg.BinPath
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Splitter{
		binPath:       binPath,
		maxChunkBytes: cfg.MaxChunkBytes,
		chunkSeconds:  cfg.ChunkSeconds,
		logger:        logger,
	}
}

// Split returns chunk descriptors for audioPath, tagged with 1-based indexes
// in temporal order. A file within the size limit becomes a single chunk
// pointing at the original file.
func (s *Splitter) Split(ctx context.Context, audioPath, workDir string) ([]domain.Chunk, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}

	if info.Size() <= s.maxChunkBytes {
		s.logger.Info("Audio file within size limit, skipping chunking",
			slog.Int64("size_bytes", info.Size()),
		)
		return []domain.Chunk{{Index: 1, Path: audioPath}}, nil
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	ext := strings.TrimPrefix(filepath.Ext(audioPath), ".")
	pattern := filepath.Join(workDir, fmt.Sprintf("%s_chunk_%%03d.%s", base, ext))

	cmd := exec.CommandContext(ctx, s.binPath,
		"-threads", "0",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(s.chunkSeconds),
		"-c", "copy",
		pattern,
		"-y",
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		s.logger.Error("ffmpeg chunking failed",
			slog.String("audio_path", audioPath),
			slog.String("output", strings.TrimSpace(string(output))),
		)
		return nil, fmt.Errorf("failed to split audio file: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, fmt.Sprintf("%s_chunk_*.%s", base, ext)))
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk files: %w", err)
	}
	sort.Strings(matches)

	chunks := make([]domain.Chunk, len(matches))
	for i, path := range matches {
		chunks[i] = domain.Chunk{Index: i + 1, Path: path}
	}

	s.logger.Info("Audio file chunked",
		slog.Int64("size_bytes", info.Size()),
		slog.Int("chunk_count", len(chunks)),
	)

	return chunks, nil
}
