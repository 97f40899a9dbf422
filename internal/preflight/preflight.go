package preflight

import (
	"context"

	"mediaflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Data volume", cfg.Paths.DataDir, minFreeBytes),
		CheckDirectoryAccess("Thumbnail directory", cfg.Paths.ThumbnailDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	// Watch folder only needs to be listable.
	if cfg.Paths.WatchDir != "" {
		results = append(results, CheckDirectoryReadable("Watch directory", cfg.Paths.WatchDir))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
