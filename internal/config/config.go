package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ThumbnailDir string `toml:"thumbnail_dir"`
	LogDir       string `toml:"log_dir"`
	WatchDir     string `toml:"watch_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Workflow contains scheduler sizing and subprocess limits.
type Workflow struct {
	Workers                  int `toml:"workers"`
	SubprocessTimeoutSeconds int `toml:"subprocess_timeout_seconds"`
	ShutdownTimeoutSeconds   int `toml:"shutdown_timeout_seconds"`
}

// Tools names the external media binaries.
type Tools struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	ThumbnailWidth int    `toml:"thumbnail_width"`
}

// Analyzer selects the content classification backend.
type Analyzer struct {
	Mode          string `toml:"mode"`
	FlagThreshold int    `toml:"flag_threshold"`
	Seed          int64  `toml:"seed"`
}

// Broadcast tunes progress fan-out.
type Broadcast struct {
	// SubscriberBuffer is the per-connection event backlog before the
	// connection is dropped as slow.
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// Server holds HTTP surface options beyond the bind address.
type Server struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Ingest holds defaults for files arriving without explicit ownership.
type Ingest struct {
	DefaultOwner string `toml:"default_owner"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediaflow.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Workflow  Workflow  `toml:"workflow"`
	Tools     Tools     `toml:"tools"`
	Analyzer  Analyzer  `toml:"analyzer"`
	Broadcast Broadcast `toml:"broadcast"`
	Server    Server    `toml:"server"`
	Ingest    Ingest    `toml:"ingest"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mediaflow.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ThumbnailDir, c.Paths.LogDir}
	if c.Paths.WatchDir != "" {
		dirs = append(dirs, c.Paths.WatchDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite catalog location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mediaflow.db")
}

// LockPath returns the single-instance daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "mediaflow.lock")
}

// SubprocessTimeout is the ceiling applied to each ffprobe/ffmpeg call.
func (c *Config) SubprocessTimeout() time.Duration {
	return time.Duration(c.Workflow.SubprocessTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds how long the daemon waits for in-flight runs.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Workflow.ShutdownTimeoutSeconds) * time.Second
}

// APIBaseURL is the URL CLI commands use to reach the daemon.
func (c *Config) APIBaseURL() string {
	bind := c.Paths.APIBind
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
