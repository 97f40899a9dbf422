package main

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaflow/internal/analyzer"
	"mediaflow/internal/api"
	"mediaflow/internal/catalog"
	"mediaflow/internal/progress"
	"mediaflow/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "mediaflow.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestAddListShowReprocess(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "uploads", "sunset.png")
	writePNG(t, path)

	out, _, err := runCLI(t, []string{"add", path, "--owner", "user-7", "--title", "Sunset"}, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued")
	requireContains(t, out, `"Sunset"`)

	items, err := env.store.List(context.Background(), catalog.ListFilter{OwnerID: "user-7"})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one stored item, got %d (%v)", len(items), err)
	}
	id := items[0].ID
	waitFor(t, 10*time.Second, func() bool {
		item, err := env.store.GetByID(context.Background(), id)
		return err == nil && item.Status == catalog.StatusCompleted
	})

	out, _, err = runCLI(t, []string{"list", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Sunset")
	requireContains(t, out, "100%")

	out, _, err = runCLI(t, []string{"--json", "list", "--owner", "user-7"}, env.configPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var listed api.ItemListResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(listed.Items) != 1 || listed.Items[0].ID != id {
		t.Fatalf("unexpected json list %+v", listed.Items)
	}

	out, _, err = runCLI(t, []string{"list", "--owner", "nobody"}, env.configPath)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	requireContains(t, out, "No items")

	out, _, err = runCLI(t, []string{"show", id}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Sunset")
	requireContains(t, out, "completed (done, 100%)")
	requireContains(t, out, "Content:")
	requireContains(t, out, "/media/"+id)

	out, _, err = runCLI(t, []string{"reprocess", id}, env.configPath)
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	requireContains(t, out, "Requeued "+id)

	_, errOut, err := runCLI(t, []string{"reprocess", "missing-id"}, env.configPath)
	if err == nil {
		t.Fatal("expected reprocess of unknown id to fail")
	}
	requireContains(t, errOut, "missing-id")
}

func TestAddRejectsNonMedia(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(path, []byte("just text\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"add", path}, env.configPath); err == nil {
		t.Fatal("expected add of a text file to fail")
	}
	if _, _, err := runCLI(t, []string{"add", "a.png", "b.png", "--title", "x"}, env.configPath); err == nil {
		t.Fatal("expected --title with multiple files to fail")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewItem(t, env.store, env.cfg, "queued.mp4", 10)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] running")
	requireContains(t, out, "== Scheduler ==")
	requireContains(t, out, "FFprobe:")
	requireContains(t, out, "fallback in use")

	out, _, err = runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Workflow.Scheduler.Workers != env.cfg.Workflow.Workers {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusWhenDaemonDown(t *testing.T) {
	t.Setenv("MEDIAFLOW_API_TOKEN", "")
	cfg := testsupport.NewConfig(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg.Paths.APIBind = ln.Addr().String()
	ln.Close()
	configPath := filepath.Join(testsupport.BaseDir(cfg), "mediaflow.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")

	_, _, err = runCLI(t, []string{"list"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "mediaflow serve") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestWatchPrintsEvents(t *testing.T) {
	env := setupCLITestEnv(t)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, _, err := runCLI(t, []string{"watch", "--item", "abc", "--until-done"}, env.configPath)
		done <- result{out, err}
	}()

	waitFor(t, 5*time.Second, func() bool { return env.hub.Subscribers(progress.ItemTopic("abc")) == 1 })
	pct := 50
	env.hub.Publish(progress.ItemTopic("abc"), progress.Event{
		Type: progress.EventProgress, ID: "abc", Stage: catalog.StageAnalyzingContent, Progress: &pct, Message: "Analyzing content",
	})
	env.hub.Publish(progress.ItemTopic("abc"), progress.Event{
		Type: progress.EventComplete, ID: "abc",
		SensitivityResult: &analyzer.Result{Classification: analyzer.ClassificationSafe, Confidence: 90},
	})

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("watch: %v", res.err)
		}
		requireContains(t, res.out, "abc  50%  analyzing_content  Analyzing content")
		requireContains(t, res.out, "abc complete: safe (90%)")
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not exit after completion")
	}
}

func TestWatchRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"watch"}, env.configPath); err == nil {
		t.Fatal("expected error without --item or --user")
	}
	if _, _, err := runCLI(t, []string{"watch", "--user", "u", "--until-done"}, env.configPath); err == nil {
		t.Fatal("expected error for --until-done without --item")
	}
}

func TestFormatEvent(t *testing.T) {
	if got := formatEvent(progress.ErrorEvent("x", "probe exploded")); got != "x failed: probe exploded" {
		t.Fatalf("error event = %q", got)
	}
	if got := formatEvent(progress.Event{Type: progress.EventComplete, ID: "y"}); got != "y complete" {
		t.Fatalf("complete event = %q", got)
	}
}

func TestRenderItemTableTrimsLongTitles(t *testing.T) {
	long := strings.Repeat("t", 80)
	out := renderItemTable([]api.Item{{ID: "1", Title: long, Status: "pending", Stage: "queued"}})
	if strings.Contains(out, long) {
		t.Fatal("expected long title to be trimmed")
	}
	requireContains(t, out, "0%")
}
