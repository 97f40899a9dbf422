package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
	"mediaflow/internal/daemon"
	"mediaflow/internal/deps"
	"mediaflow/internal/logging"
	"mediaflow/internal/progress"
	"mediaflow/internal/stages"
	"mediaflow/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level from the config file when set.
	LogLevel    string
	Development bool
}

// PIDPath is where a running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "mediaflow.pid")
}

// Run starts the mediaflow daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, cfg)

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store",
			logging.Error(err),
			logging.String(logging.FieldEventType, "catalog_open_failed"),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and that no other process holds the database"),
		)
		return err
	}

	hub := progress.NewHub(logger)
	manager := workflow.NewManager(cfg, store, hub, logger)
	manager.ConfigureStages(stages.Build(cfg, logger))

	d, err := daemon.New(cfg, store, hub, manager, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration, the api_bind address and the daemon lock"),
		)
		return err
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	if watcher := d.Watcher(); watcher != nil {
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	runErr := group.Wait()

	logger.Info("mediaflow daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer stopCancel()
	d.Stop(stopCtx)
	return runErr
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	local := *cfg
	if opts.LogLevel != "" {
		local.Logging.Level = opts.LogLevel
	}
	if !opts.Development {
		return logging.NewFromConfig(&local)
	}
	return logging.New(logging.Options{
		Level:       local.Logging.Level,
		Format:      local.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(local.Paths.LogDir, "mediaflow.log")},
		Development: true,
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the process id recorded at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range deps.CheckBinaries(deps.MediaTools(cfg)) {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(status.Name)+"_available", status.Available),
			logging.String(strings.ToLower(status.Name)+"_binary", status.Command),
		)
	}
	attrs = append(attrs,
		logging.Int("workers", cfg.Workflow.Workers),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.String("analyzer_mode", cfg.Analyzer.Mode),
	)
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
