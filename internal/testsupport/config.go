package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediaflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ThumbnailDir = filepath.Join(base, "thumbnails")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Workflow.SubprocessTimeoutSeconds = 5

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers sets the scheduler pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = n
	}
}

// WithAPIToken enables bearer-token auth on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithWatchDir enables the drop-folder watcher under the temp root.
func WithWatchDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.WatchDir = filepath.Join(b.baseDir, "inbox")
	}
}

// WithToolScripts writes shell scripts standing in for ffprobe and ffmpeg and
// points the config at them. An empty script leaves that tool unchanged.
func WithToolScripts(ffprobe, ffmpeg string) ConfigOption {
	return func(b *configBuilder) {
		if ffprobe != "" {
			b.cfg.Tools.FFprobeBinary = writeScript(b.t, filepath.Join(b.baseDir, "bin"), "ffprobe", ffprobe)
		}
		if ffmpeg != "" {
			b.cfg.Tools.FFmpegBinary = writeScript(b.t, filepath.Join(b.baseDir, "bin"), "ffmpeg", ffmpeg)
		}
	}
}

// WithMissingTools points both media tools at paths that do not exist.
func WithMissingTools() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.FFprobeBinary = filepath.Join(b.baseDir, "missing", "ffprobe")
		b.cfg.Tools.FFmpegBinary = filepath.Join(b.baseDir, "missing", "ffmpeg")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

func writeScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
