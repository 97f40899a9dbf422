package proc_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mediaflow/internal/media/proc"
	"mediaflow/internal/services"
)

func TestOutputReturnsStdout(t *testing.T) {
	out, err := proc.Output(context.Background(), time.Second, "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestOutputWrapsNonZeroExit(t *testing.T) {
	_, err := proc.Output(context.Background(), time.Second, "sh", "-c", "echo broken stream >&2; exit 3")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken stream") {
		t.Fatalf("expected stderr excerpt in %q", err.Error())
	}
}

func TestOutputKillsOnTimeout(t *testing.T) {
	start := time.Now()
	_, err := proc.Output(context.Background(), 100*time.Millisecond, "sh", "-c", "sleep 5 & sleep 5")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestOutputMissingBinary(t *testing.T) {
	_, err := proc.Output(context.Background(), time.Second, "/nonexistent/ffprobe")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
