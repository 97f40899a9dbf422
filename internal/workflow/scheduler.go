package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mediaflow/internal/logging"
	"mediaflow/internal/metrics"
)

// RunFunc executes one admitted item.
type RunFunc func(ctx context.Context, id string)

// SchedulerStats is a point-in-time view of the admission queue.
type SchedulerStats struct {
	Workers int  `json:"workers"`
	Active  int  `json:"active"`
	Queued  int  `json:"queued"`
	Peak    int  `json:"peak"`
	Running bool `json:"running"`
}

// Scheduler admits submitted ids from an unbounded FIFO onto at most workers
// concurrent runs. It neither deduplicates nor prioritises: an id submitted
// twice runs twice.
type Scheduler struct {
	workers int
	run     RunFunc
	logger  *slog.Logger

	mu       sync.Mutex
	queue    []string
	active   int
	peak     int
	started  bool
	stopping bool
	runCtx   context.Context
	wg       sync.WaitGroup
}

// NewScheduler builds a scheduler. workers below 1 is treated as 1.
func NewScheduler(workers int, run RunFunc, logger *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		workers: workers,
		run:     run,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start begins admitting work. Ids submitted before Start are admitted now.
// Runs inherit ctx's values but not its cancellation; a run is never
// aborted once admitted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	if s.stopping {
		return errors.New("scheduler stopped")
	}
	s.started = true
	s.runCtx = context.WithoutCancel(ctx)
	s.logger.Info("scheduler started",
		logging.Int("workers", s.workers),
		logging.Int("queued", len(s.queue)),
		logging.String(logging.FieldEventType, "scheduler_start"),
	)
	s.admitLocked()
	return nil
}

// Submit enqueues id and admits it immediately when a slot is free. It never
// blocks on a run and reports nothing; outcomes go to the store and the hub.
func (s *Scheduler) Submit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		s.logger.Warn("submission dropped; scheduler stopping",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "submit_dropped"),
			logging.String(logging.FieldErrorHint, "reprocess the item after restart"),
		)
		return
	}
	s.queue = append(s.queue, id)
	if s.started {
		s.admitLocked()
	}
	s.recordLocked()
}

func (s *Scheduler) admitLocked() {
	for !s.stopping && s.active < s.workers && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue[0] = ""
		s.queue = s.queue[1:]
		s.active++
		s.peak = max(s.peak, s.active)
		s.wg.Add(1)
		go s.execute(id)
	}
	s.recordLocked()
}

func (s *Scheduler) execute(id string) {
	defer func() {
		s.mu.Lock()
		s.active--
		s.admitLocked()
		s.mu.Unlock()
		s.wg.Done()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("run panicked outside the pipeline",
				logging.String(logging.FieldItemID, id),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldEventType, "run_panic"),
			)
		}
	}()
	s.run(s.runCtx, id)
}

func (s *Scheduler) recordLocked() {
	metrics.SchedulerActive.Set(float64(s.active))
	metrics.SchedulerQueued.Set(float64(len(s.queue)))
}

// Stop halts admission, discards queued ids, and waits for in-flight runs
// until ctx is done. It may be called again to keep waiting.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	dropped := s.queue
	s.queue = nil
	active := s.active
	s.recordLocked()
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.logger.Warn("queued items dropped at shutdown",
			logging.Int("dropped", len(dropped)),
			logging.Any("item_ids", dropped),
			logging.String(logging.FieldEventType, "queue_dropped"),
			logging.String(logging.FieldErrorHint, "items are marked failed on next start; reprocess them"),
		)
	}
	if active > 0 {
		s.logger.Info("waiting for in-flight runs", logging.Int("active", active))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight runs: %w", ctx.Err())
	}
}

// Stats reports the current admission state.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStats{
		Workers: s.workers,
		Active:  s.active,
		Queued:  len(s.queue),
		Peak:    s.peak,
		Running: s.started && !s.stopping,
	}
}
