// Package audio acquires a video's audio track and slices it into chunks
// small enough for the transcription provider's upload limit.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// DownloaderConfig holds yt-dlp invocation settings
type DownloaderConfig struct {
	BinPath string // yt-dlp binary, defaults to "yt-dlp"
}

// Downloader fetches the best available audio stream for a video via yt-dlp
type Downloader struct {
	binPath string
	logger  *slog.Logger
}

// NewDownloader creates a new Downloader
func NewDownloader(cfg *DownloaderConfig, logger *slog.Logger) *Downloader {
	binPath := cfg.BinPath
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Downloader{
		binPath: binPath,
		logger:  logger,
	}
}

// Acquire downloads the audio track for videoID into destDir and returns the
// local file path, the video title, and the file size
func (d *Downloader) Acquire(ctx context.Context, videoID, destDir string) (*domain.AudioFile, error) {
	videoURL := "https://www.youtube.com/watch?v=" + videoID

	cmd := exec.CommandContext(ctx, d.binPath,
		"--no-playlist",
		"-f", "bestaudio",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-simulate",
		"--print", "after_move:filepath",
		"--print", "title",
		videoURL,
	)

	output, err := cmd.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		d.logger.Error("yt-dlp download failed",
			slog.String("video_id", videoID),
			slog.String("stderr", stderr),
		)
		return nil, fmt.Errorf("failed to download audio for video %s: %w", videoID, err)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("unexpected yt-dlp output for video %s: %q", videoID, string(output))
	}

	// --print templates emit in argument order: filepath first, then title
	audioPath := strings.TrimSpace(lines[0])
	title := strings.TrimSpace(lines[1])
	if title == "" {
		title = videoID
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("downloaded audio file missing: %w", err)
	}

	d.logger.Info("Audio downloaded",
		slog.String("video_id", videoID),
		slog.String("path", audioPath),
		slog.Int64("size_bytes", info.Size()),
	)

	return &domain.AudioFile{
		Path:  audioPath,
		Title: title,
		Size:  info.Size(),
	}, nil
}
