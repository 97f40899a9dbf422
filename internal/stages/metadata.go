package stages

import (
	"context"
	"log/slog"
	"strings"

	"mediaflow/internal/catalog"
	"mediaflow/internal/deps"
	"mediaflow/internal/logging"
	"mediaflow/internal/media"
	"mediaflow/internal/metrics"
	"mediaflow/internal/stage"
)

// Metadata fills duration, dimensions, and codec from the extractor.
type Metadata struct {
	extractor media.MetadataExtractor
	binary    string
	logger    *slog.Logger
}

// NewMetadata builds the extracting_metadata handler. binary is only used for
// health reporting.
func NewMetadata(extractor media.MetadataExtractor, binary string, logger *slog.Logger) *Metadata {
	return &Metadata{
		extractor: extractor,
		binary:    binary,
		logger:    logging.NewComponentLogger(logger, "metadata"),
	}
}

func (s *Metadata) Execute(ctx context.Context, item *catalog.Item) error {
	meta := s.extractor.Extract(ctx, item.FilePath)
	if meta.IsZero() {
		metrics.Fallbacks.WithLabelValues(string(catalog.StageExtractingMetadata)).Inc()
	}
	item.DurationSeconds = meta.DurationSeconds
	item.Width = meta.Width
	item.Height = meta.Height
	item.VideoCodec = meta.VideoCodec
	if strings.TrimSpace(item.Title) == "" && meta.Title != "" {
		item.Title = meta.Title
	}

	logging.WithContext(ctx, s.logger).Info("metadata merged",
		logging.String(logging.FieldEventType, "metadata_merged"),
		logging.Float64("duration_seconds", item.DurationSeconds),
		logging.Int("width", item.Width),
		logging.Int("height", item.Height),
		logging.Bool("fallback", meta.IsZero()),
	)
	return nil
}

func (s *Metadata) HealthCheck(context.Context) stage.Health {
	const name = "metadata"
	if s.extractor == nil {
		return stage.Unhealthy(name, "extractor unavailable")
	}
	return toolHealth(name, s.binary, "ffprobe")
}

func toolHealth(name, binary, label string) stage.Health {
	if binary == "" {
		return stage.Healthy(name)
	}
	status := deps.CheckBinaries([]deps.Requirement{{Name: label, Command: binary}})[0]
	if !status.Available {
		return stage.Unhealthy(name, status.Detail+"; fallback values in use")
	}
	return stage.Healthy(name)
}
