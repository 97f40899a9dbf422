package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaflow/internal/logging"
	"mediaflow/internal/media/proc"
)

// FrameGrabber writes JPEG thumbnails with ffmpeg.
type FrameGrabber struct {
	Binary    string
	OutputDir string
	Width     int
	Timeout   time.Duration
	logger    *slog.Logger
}

// NewFrameGrabber builds a thumbnailer writing into outputDir.
func NewFrameGrabber(binary, outputDir string, width int, timeout time.Duration, logger *slog.Logger) *FrameGrabber {
	return &FrameGrabber{
		Binary:    binary,
		OutputDir: outputDir,
		Width:     width,
		Timeout:   timeout,
		logger:    logging.NewComponentLogger(logger, "thumbnail"),
	}
}

func (g *FrameGrabber) Generate(ctx context.Context, req ThumbnailRequest) (string, bool) {
	logger := logging.WithContext(ctx, g.logger)
	if strings.HasPrefix(req.MimeType, "audio/") {
		logger.Debug("thumbnail skipped for audio", logging.String("mime_type", req.MimeType))
		return "", false
	}
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		logging.Fallback(logger, "thumbnail directory unavailable", "thumbnail_fallback",
			"check paths.thumbnail_dir permissions", logging.Error(err))
		return "", false
	}

	target := filepath.Join(g.OutputDir, req.ItemID+".jpg")
	tmp := target + ".part.jpg"
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", fmt.Sprintf("%.3f", req.At.Seconds()),
		"-i", req.SourcePath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", g.Width),
		tmp,
	}
	if _, err := proc.Output(ctx, g.Timeout, g.Binary, args...); err != nil {
		_ = os.Remove(tmp)
		logging.Fallback(logger, "thumbnail generation failed; continuing without thumbnail",
			"thumbnail_fallback", "verify ffmpeg is installed and the file has a decodable video stream",
			logging.String("path", req.SourcePath), logging.Error(err))
		return "", false
	}
	if info, err := os.Stat(tmp); err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		logging.Fallback(logger, "thumbnail output missing; continuing without thumbnail",
			"thumbnail_fallback", "ffmpeg exited cleanly but wrote no frame; the seek point may be past the end",
			logging.String("path", req.SourcePath))
		return "", false
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		logging.Fallback(logger, "thumbnail finalize failed", "thumbnail_fallback",
			"check paths.thumbnail_dir permissions", logging.Error(err))
		return "", false
	}
	logger.Debug("thumbnail written", logging.String("thumbnail_path", target), logging.Duration("offset", req.At))
	return target, true
}
