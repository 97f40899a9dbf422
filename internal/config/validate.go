package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateAnalyzer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.ThumbnailDir == "" {
		return errors.New("paths.thumbnail_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	if c.Workflow.SubprocessTimeoutSeconds < 1 {
		return errors.New("workflow.subprocess_timeout_seconds must be positive")
	}
	if c.Workflow.ShutdownTimeoutSeconds < 1 {
		return errors.New("workflow.shutdown_timeout_seconds must be positive")
	}
	if c.Broadcast.SubscriberBuffer < 1 {
		return errors.New("broadcast.subscriber_buffer must be at least 1")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.ThumbnailWidth < 16 || c.Tools.ThumbnailWidth > 3840 {
		return fmt.Errorf("tools.thumbnail_width must be between 16 and 3840, got %d", c.Tools.ThumbnailWidth)
	}
	return nil
}

func (c *Config) validateAnalyzer() error {
	switch c.Analyzer.Mode {
	case AnalyzerModeDeterministic, AnalyzerModeRandom:
	default:
		return fmt.Errorf("analyzer.mode must be %q or %q, got %q", AnalyzerModeDeterministic, AnalyzerModeRandom, c.Analyzer.Mode)
	}
	if c.Analyzer.FlagThreshold < 0 || c.Analyzer.FlagThreshold > 100 {
		return errors.New("analyzer.flag_threshold must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
