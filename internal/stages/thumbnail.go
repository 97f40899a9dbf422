package stages

import (
	"context"
	"log/slog"
	"strings"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/media"
	"mediaflow/internal/metrics"
	"mediaflow/internal/preflight"
	"mediaflow/internal/stage"
)

// Thumbnail captures a still frame for the item.
type Thumbnail struct {
	generator media.ThumbnailGenerator
	binary    string
	outputDir string
	logger    *slog.Logger
}

// NewThumbnail builds the generating_thumbnail handler.
func NewThumbnail(generator media.ThumbnailGenerator, binary, outputDir string, logger *slog.Logger) *Thumbnail {
	return &Thumbnail{
		generator: generator,
		binary:    binary,
		outputDir: outputDir,
		logger:    logging.NewComponentLogger(logger, "thumbnail"),
	}
}

func (s *Thumbnail) Execute(ctx context.Context, item *catalog.Item) error {
	req := media.ThumbnailRequest{
		ItemID:     item.ID,
		SourcePath: item.FilePath,
		MimeType:   item.MimeType,
		At:         media.ThumbnailOffset(item.DurationSeconds),
	}
	path, ok := s.generator.Generate(ctx, req)
	if !ok {
		item.ThumbnailPath = ""
		if !strings.HasPrefix(item.MimeType, "audio/") {
			metrics.Fallbacks.WithLabelValues(string(catalog.StageGeneratingThumbnail)).Inc()
		}
		return nil
	}
	item.ThumbnailPath = path
	logging.WithContext(ctx, s.logger).Info("thumbnail attached",
		logging.String(logging.FieldEventType, "thumbnail_attached"),
		logging.String("thumbnail_path", path),
	)
	return nil
}

func (s *Thumbnail) HealthCheck(context.Context) stage.Health {
	const name = "thumbnail"
	if s.generator == nil {
		return stage.Unhealthy(name, "generator unavailable")
	}
	if s.outputDir != "" {
		if check := preflight.CheckDirectoryAccess(name, s.outputDir); !check.Passed {
			return stage.Unhealthy(name, check.Detail)
		}
	}
	return toolHealth(name, s.binary, "ffmpeg")
}
