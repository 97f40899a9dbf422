package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
	"mediaflow/internal/daemon"
	"mediaflow/internal/logging"
	"mediaflow/internal/progress"
	"mediaflow/internal/stages"
	"mediaflow/internal/testsupport"
	"mediaflow/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	hub        *progress.Hub
	daemon     *daemon.Daemon
	configPath string
	baseDir    string
}

// setupCLITestEnv starts a real daemon on a loopback port and writes a config
// file pointing the CLI at it.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("MEDIAFLOW_API_TOKEN", "")

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithMissingTools()}, opts...)...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := progress.NewHub(logger)
	mgr := workflow.NewManager(cfg, store, hub, logger)
	mgr.ConfigureStages(stages.Build(cfg, logger))

	d, err := daemon.New(cfg, store, hub, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		d.Stop(stopCtx)
		cancel()
	})

	fileCfg := *cfg
	fileCfg.Paths.APIBind = d.Addr()
	configPath := filepath.Join(testsupport.BaseDir(cfg), "mediaflow.toml")
	writeTestConfig(t, configPath, &fileCfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		hub:        hub,
		daemon:     d,
		configPath: configPath,
		baseDir:    testsupport.BaseDir(cfg),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, append(pngHeader, make([]byte, 128)...), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
