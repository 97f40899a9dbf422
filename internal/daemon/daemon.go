package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
	"mediaflow/internal/deps"
	"mediaflow/internal/ingest"
	"mediaflow/internal/logging"
	"mediaflow/internal/preflight"
	"mediaflow/internal/progress"
	"mediaflow/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	base      *slog.Logger
	store     *catalog.Store
	hub       *progress.Hub
	workflow  *workflow.Manager
	ingest    *ingest.Service
	authorize Authorizer
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithAuthorizer installs the per-item media access check.
func WithAuthorizer(a Authorizer) Option {
	return func(d *Daemon) {
		if a != nil {
			d.authorize = a
		}
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Workflow      workflow.StatusSummary
	Dependencies  []deps.Status
	Preflight     []preflight.Result
	DatabasePath  string
	LockFilePath  string
	Subscriptions int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, hub *progress.Hub, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || hub == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, hub, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		base:      logger,
		store:     store,
		hub:       hub,
		workflow:  wf,
		ingest:    ingest.NewService(store, wf, cfg.Ingest.DefaultOwner, logger),
		authorize: AllowAll,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, fails records abandoned by a previous
// process, and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediaflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	release := func() {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
	}

	if _, err := d.workflow.RecoverAbandoned(d.ctx); err != nil {
		release()
		return fmt.Errorf("recover abandoned items: %w", err)
	}
	d.logPreflight(d.ctx)

	if err := d.workflow.Start(d.ctx); err != nil {
		release()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		_ = d.workflow.Stop(context.Background())
		release()
		return err
	}

	d.running.Store(true)
	d.logger.Info("mediaflow daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("workers", d.cfg.Workflow.Workers),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts the API server, drains in-flight runs within ctx, and releases
// the daemon lock.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.workflow.Stop(ctx); err != nil {
		d.logger.Warn("in-flight runs did not finish before shutdown",
			logging.Error(err),
			logging.String(logging.FieldEventType, "shutdown_timeout"),
			logging.String(logging.FieldErrorHint, "affected items are marked failed on next start; reprocess them"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mediaflow daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout())
	defer cancel()
	d.Stop(ctx)
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API listener address, empty when the server is not listening.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Ingest registers a file and queues it for processing.
func (d *Daemon) Ingest(ctx context.Context, req ingest.Request) (*catalog.Item, error) {
	return d.ingest.Ingest(ctx, req)
}

// Reprocess resets a terminal item and resubmits it.
func (d *Daemon) Reprocess(ctx context.Context, id string) (*catalog.Item, error) {
	return d.workflow.Reprocess(ctx, id)
}

// Watcher returns the drop-folder watcher, or nil when no watch directory is
// configured.
func (d *Daemon) Watcher() *ingest.Watcher {
	dir := strings.TrimSpace(d.cfg.Paths.WatchDir)
	if dir == "" {
		return nil
	}
	return ingest.NewWatcher(dir, d.cfg.Ingest.DefaultOwner, ingest.DefaultSettle, d.ingest, d.base)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Workflow:      d.workflow.Status(ctx),
		Dependencies:  preflight.CheckSystemDeps(ctx, d.cfg),
		Preflight:     preflight.RunAll(ctx, d.cfg),
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		Subscriptions: d.hub.Connections(),
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, r := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix directory permissions or free space; processing may fail"),
		)
	}
	for _, dep := range deps.Missing(preflight.CheckSystemDeps(ctx, d.cfg), false) {
		d.logger.Warn("media tool unavailable",
			logging.String("tool", dep.Name),
			logging.String("command", dep.Command),
			logging.String("detail", dep.Detail),
			logging.String(logging.FieldEventType, "dependency_missing"),
			logging.String(logging.FieldErrorHint, "install the tool or set its path under [tools]; fallback values are used meanwhile"),
		)
	}
}
