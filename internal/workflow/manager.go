package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mediaflow/internal/catalog"
	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/progress"
)

// Manager owns the scheduler and pipeline for the daemon's lifetime.
type Manager struct {
	cfg       *config.Config
	store     *catalog.Store
	publisher Publisher
	logger    *slog.Logger
	base      *slog.Logger

	scheduler *Scheduler

	mu        sync.RWMutex
	stages    StageSet
	pipeline  *Pipeline
	running   bool
	lastErr   error
	lastItem  string
	reprocess sync.Mutex
}

// NewManager constructs a workflow manager. Stages must be configured before
// Start.
func NewManager(cfg *config.Config, store *catalog.Store, publisher Publisher, logger *slog.Logger) *Manager {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	m := &Manager{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		base:      logger,
	}
	m.scheduler = NewScheduler(cfg.Workflow.Workers, m.runItem, logger)
	return m
}

// ConfigureStages registers the stage handlers.
func (m *Manager) ConfigureStages(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = set
	m.pipeline = NewPipeline(m.store, m.publisher, set, m.base)
}

// Start begins admitting submitted items.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if !m.stages.complete() {
		m.mu.Unlock()
		return errStagesNotConfigured
	}
	m.running = true
	m.mu.Unlock()
	return m.scheduler.Start(ctx)
}

// Stop halts admission and waits for in-flight runs until ctx is done.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()
	return m.scheduler.Stop(ctx)
}

// Submit admits id to the scheduler. Fire-and-forget.
func (m *Manager) Submit(id string) {
	m.scheduler.Submit(id)
}

// Enqueue announces a freshly queued item to subscribers and submits it.
func (m *Manager) Enqueue(item *catalog.Item) {
	m.publisher.PublishAll(progress.Topics(item.ID, item.OwnerID), progress.ProgressEvent(item))
	m.Submit(item.ID)
}

// Reprocess resets a completed or failed item and resubmits it. Items still
// pending or processing are rejected with ErrNotReprocessable.
func (m *Manager) Reprocess(ctx context.Context, id string) (*catalog.Item, error) {
	m.reprocess.Lock()
	defer m.reprocess.Unlock()

	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldItemID, id))
	if !item.CanReprocess() {
		logger.Info("reprocess rejected",
			logging.String("status", string(item.Status)),
			logging.String(logging.FieldEventType, "reprocess_rejected"),
		)
		return item, ErrNotReprocessable
	}

	previous := item.Status
	item.ResetForReprocess()
	if err := m.store.Update(ctx, item); err != nil {
		return nil, err
	}
	logger.Info("item resubmitted",
		logging.String("previous_status", string(previous)),
		logging.String(logging.FieldEventType, "reprocess_submitted"),
	)
	m.Enqueue(item)
	return item, nil
}

// RecoverAbandoned fails records a previous process left pending or
// processing. Their queue entries did not survive the restart.
func (m *Manager) RecoverAbandoned(ctx context.Context) ([]string, error) {
	ids, err := m.store.FailAbandoned(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		m.logger.Warn("marked abandoned items failed",
			logging.Int("count", len(ids)),
			logging.Any("item_ids", ids),
			logging.String(logging.FieldEventType, "abandoned_recovered"),
			logging.String(logging.FieldErrorHint, "reprocess these items to run them again"),
		)
	}
	return ids, nil
}

func (m *Manager) runItem(ctx context.Context, id string) {
	m.mu.RLock()
	pipeline := m.pipeline
	m.mu.RUnlock()
	if pipeline == nil {
		m.setLastError(id, errStagesNotConfigured)
		return
	}
	err := pipeline.Run(ctx, id)
	m.setLastError(id, err)
}

func (m *Manager) setLastError(id string, err error) {
	m.mu.Lock()
	m.lastItem = id
	if err != nil {
		m.lastErr = err
	}
	m.mu.Unlock()
}
