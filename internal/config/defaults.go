package config

const (
	defaultConfigPath               = "~/.config/mediaflow/config.toml"
	defaultDataDir                  = "~/.local/share/mediaflow"
	defaultThumbnailDir             = "~/.local/share/mediaflow/thumbnails"
	defaultLogDir                   = "~/.local/share/mediaflow/logs"
	defaultAPIBind                  = "127.0.0.1:7590"
	defaultWorkers                  = 2
	defaultSubprocessTimeoutSeconds = 60
	defaultShutdownTimeoutSeconds   = 30
	defaultFFprobeBinary            = "ffprobe"
	defaultFFmpegBinary             = "ffmpeg"
	defaultThumbnailWidth           = 320
	defaultAnalyzerMode             = AnalyzerModeDeterministic
	defaultFlagThreshold            = 85
	defaultSubscriberBuffer         = 64
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

const (
	AnalyzerModeDeterministic = "deterministic"
	AnalyzerModeRandom        = "random"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ThumbnailDir: defaultThumbnailDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:                  defaultWorkers,
			SubprocessTimeoutSeconds: defaultSubprocessTimeoutSeconds,
			ShutdownTimeoutSeconds:   defaultShutdownTimeoutSeconds,
		},
		Tools: Tools{
			FFprobeBinary:  defaultFFprobeBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			ThumbnailWidth: defaultThumbnailWidth,
		},
		Analyzer: Analyzer{
			Mode:          defaultAnalyzerMode,
			FlagThreshold: defaultFlagThreshold,
		},
		Broadcast: Broadcast{
			SubscriberBuffer: defaultSubscriberBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
