package stages

import (
	"log/slog"

	"mediaflow/internal/analyzer"
	"mediaflow/internal/config"
	"mediaflow/internal/media"
	"mediaflow/internal/workflow"
)

// NewAnalyzer builds the configured content analyzer.
func NewAnalyzer(cfg *config.Config, logger *slog.Logger) analyzer.Analyzer {
	mode := analyzer.StubDeterministic
	if cfg.Analyzer.Mode == config.AnalyzerModeRandom {
		mode = analyzer.StubRandom
	}
	model := analyzer.NewStubModel(mode, cfg.Analyzer.FlagThreshold, cfg.Analyzer.Seed)
	return analyzer.FromModel(model, logger)
}

// Build wires the production collaborators for cfg into a StageSet.
func Build(cfg *config.Config, logger *slog.Logger) workflow.StageSet {
	timeout := cfg.SubprocessTimeout()
	extractor := media.NewProbeExtractor(cfg.Tools.FFprobeBinary, timeout, logger)
	grabber := media.NewFrameGrabber(cfg.Tools.FFmpegBinary, cfg.Paths.ThumbnailDir, cfg.Tools.ThumbnailWidth, timeout, logger)

	return workflow.StageSet{
		Metadata:  NewMetadata(extractor, cfg.Tools.FFprobeBinary, logger),
		Thumbnail: NewThumbnail(grabber, cfg.Tools.FFmpegBinary, cfg.Paths.ThumbnailDir, logger),
		Analysis:  NewAnalysis(NewAnalyzer(cfg, logger), logger),
		Finalize:  NewFinalize(logger),
	}
}
