package stages

import (
	"context"
	"log/slog"

	"mediaflow/internal/analyzer"
	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/metrics"
	"mediaflow/internal/stage"
)

// Analysis attaches the content-sensitivity classification.
type Analysis struct {
	analyzer analyzer.Analyzer
	logger   *slog.Logger
}

// NewAnalysis builds the analyzing_content handler.
func NewAnalysis(a analyzer.Analyzer, logger *slog.Logger) *Analysis {
	return &Analysis{analyzer: a, logger: logging.NewComponentLogger(logger, "analysis")}
}

func (s *Analysis) Execute(ctx context.Context, item *catalog.Item) error {
	result := s.analyzer.Analyze(ctx, item.FilePath).Normalize()
	if result.Classification == analyzer.ClassificationPending {
		metrics.Fallbacks.WithLabelValues(string(catalog.StageAnalyzingContent)).Inc()
	}
	item.Sensitivity = &result

	logging.WithContext(ctx, s.logger).Info("content classified",
		logging.String(logging.FieldEventType, "content_classified"),
		logging.String("classification", string(result.Classification)),
		logging.Int("confidence", result.Confidence),
		logging.Int("flag_count", len(result.Flags)),
	)
	return nil
}

func (s *Analysis) HealthCheck(context.Context) stage.Health {
	if s.analyzer == nil {
		return stage.Unhealthy("analysis", "analyzer unavailable")
	}
	return stage.Healthy("analysis")
}
