// Package proc runs external media tools under a deadline. Each command gets
// its own process group so a timeout kills any children it spawned.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"mediaflow/internal/services"
)

const stderrLimit = 512

// Output runs name with args and returns stdout. A timeout <= 0 relies on ctx
// alone. Deadline expiry is reported as services.ErrTimeout; any other failure
// as services.ErrExternalTool with a stderr excerpt.
func Output(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, services.Wrap(services.ErrTimeout, "", name, fmt.Sprintf("exceeded %s", timeout), err)
	}
	return nil, services.Wrap(services.ErrExternalTool, "", name, excerpt(stderr.String()), err)
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > stderrLimit {
		text = text[:stderrLimit] + "..."
	}
	return text
}
