package media

import (
	"context"
	"log/slog"
	"time"

	"mediaflow/internal/logging"
	"mediaflow/internal/media/ffprobe"
)

// ProbeExtractor reads metadata with ffprobe.
type ProbeExtractor struct {
	Binary  string
	Timeout time.Duration
	logger  *slog.Logger
}

// NewProbeExtractor builds an extractor around the ffprobe binary.
func NewProbeExtractor(binary string, timeout time.Duration, logger *slog.Logger) *ProbeExtractor {
	return &ProbeExtractor{
		Binary:  binary,
		Timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "ffprobe"),
	}
}

func (p *ProbeExtractor) Extract(ctx context.Context, path string) Metadata {
	logger := logging.WithContext(ctx, p.logger)
	result, err := ffprobe.Inspect(ctx, p.Binary, path, p.Timeout)
	if err != nil {
		logging.Fallback(logger, "metadata extraction failed; using zero metadata",
			"metadata_fallback", "verify ffprobe is installed and the file is a readable media container",
			logging.String("path", path), logging.Error(err))
		return Metadata{}
	}

	meta := Metadata{
		DurationSeconds: result.DurationSeconds(),
		Title:           result.Title(),
	}
	if video, ok := result.PrimaryVideo(); ok {
		meta.Width = video.Width
		meta.Height = video.Height
		meta.VideoCodec = video.CodecName
	}
	logger.Debug("metadata extracted",
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.String("codec", meta.VideoCodec),
	)
	return meta
}
