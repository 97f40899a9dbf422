package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediaflow/internal/config"
)

// Requirement defines an external binary mediaflow shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// MediaTools lists the subprocess collaborators configured in cfg. Both are
// optional: the pipeline substitutes fallback values when they are missing.
func MediaTools(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobeBinary,
			Description: "Extracts duration, dimensions, and codec",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpegBinary,
			Description: "Captures thumbnails",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the unavailable entries of statuses. When requiredOnly is
// set, optional dependencies are skipped.
func Missing(statuses []Status, requiredOnly bool) []Status {
	var out []Status
	for _, status := range statuses {
		if status.Available {
			continue
		}
		if requiredOnly && status.Optional {
			continue
		}
		out = append(out, status)
	}
	return out
}
