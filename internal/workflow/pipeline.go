package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/metrics"
	"mediaflow/internal/progress"
	"mediaflow/internal/services"
)

// Pipeline is the per-item stage state machine.
type Pipeline struct {
	store     RecordStore
	publisher Publisher
	stages    []pipelineStage
	logger    *slog.Logger
}

// NewPipeline builds a pipeline over the given collaborators. A nil publisher
// discards events.
func NewPipeline(store RecordStore, publisher Publisher, set StageSet, logger *slog.Logger) *Pipeline {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Pipeline{
		store:     store,
		publisher: publisher,
		stages:    set.ordered(),
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run drives item id from queued to done. Every failure, including a panic
// in a stage handler, leaves the item failed with a terminal error event; the
// returned error is the cause.
func (p *Pipeline) Run(ctx context.Context, id string) (err error) {
	ctx = services.WithItemID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)

	item, err := p.store.GetByID(ctx, id)
	if err != nil {
		logger.Error("failed to load item for run",
			logging.Error(err),
			logging.String(logging.FieldEventType, "run_load_failed"),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		p.publisher.PublishAll(progress.Topics(id, ""), progress.ErrorEvent(id, services.FailureMessage(err)))
		return err
	}
	if item.Status != catalog.StatusPending || item.Stage != catalog.StageQueued {
		logger.Warn("skipping run for item not queued",
			logging.String("status", string(item.Status)),
			logging.String(logging.FieldStage, string(item.Stage)),
			logging.String(logging.FieldEventType, "run_skipped"),
			logging.String(logging.FieldErrorHint, "item was submitted more than once; the earlier run owns it"),
		)
		metrics.PipelineRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	logger = logger.With(logging.String(logging.FieldOwnerID, item.OwnerID))

	current := catalog.StageQueued
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", current, r)
			p.fail(ctx, logger, item, current, err)
		}
	}()

	runStart := time.Now()
	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("file_path", item.FilePath),
		logging.String("mime_type", item.MimeType),
	)

	for _, stg := range p.stages {
		current = stg.stage
		if err := p.runStage(ctx, logger, item, stg); err != nil {
			p.fail(ctx, logger, item, stg.stage, err)
			return err
		}
	}

	current = catalog.StageDone
	if err := item.EnterStage(catalog.StageDone); err != nil {
		p.fail(ctx, logger, item, current, err)
		return err
	}
	if err := p.store.Update(ctx, item); err != nil {
		err = fmt.Errorf("persist completion: %w", err)
		p.fail(ctx, logger, item, current, err)
		return err
	}
	p.publish(item, progress.ProgressEvent(item))
	p.publish(item, progress.CompleteEvent(item))
	metrics.PipelineRuns.WithLabelValues("completed").Inc()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Duration("run_duration", time.Since(runStart)),
	}
	if item.Sensitivity != nil {
		attrs = append(attrs, logging.String("classification", string(item.Sensitivity.Classification)))
	}
	logger.Info("pipeline run completed", logging.Args(attrs...)...)
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, logger *slog.Logger, item *catalog.Item, stg pipelineStage) error {
	stageCtx := services.WithStage(ctx, string(stg.stage))
	stageLogger := logger.With(logging.String(logging.FieldStage, string(stg.stage)))

	if stg.handler == nil {
		return fmt.Errorf("stage %s missing handler", stg.stage)
	}
	if err := item.EnterStage(stg.stage); err != nil {
		return err
	}
	if err := p.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist %s transition: %w", stg.stage, err)
	}
	p.publish(item, progress.ProgressEvent(item))
	stageLogger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("progress", item.Progress),
	)

	start := time.Now()
	execErr := stg.handler.Execute(stageCtx, item)
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(string(stg.stage)).Observe(elapsed.Seconds())
	if execErr != nil {
		return execErr
	}
	// Handlers only merge results; they must not move the state machine.
	if item.Stage != stg.stage {
		return fmt.Errorf("%w: handler for %s moved item to %s", catalog.ErrInvalidState, stg.stage, item.Stage)
	}

	if err := p.store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist %s result: %w", stg.stage, err)
	}
	stageLogger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, item *catalog.Item, at catalog.Stage, stageErr error) {
	message := services.FailureMessage(stageErr)
	item.SetFailed(message)

	logger.Error("pipeline run failed",
		logging.String(logging.FieldStage, string(at)),
		logging.String("error_message", message),
		logging.Int("progress", item.Progress),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "run_failed"),
		logging.String(logging.FieldErrorHint, "fix the cause and reprocess the item"),
	)

	// Cancellation of the caller must not prevent recording the failure.
	persistCtx := context.WithoutCancel(ctx)
	if err := p.store.Update(persistCtx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not persist run failure")
		} else {
			logger.Error("failed to persist run failure", logging.Error(err))
		}
	}

	p.publish(item, progress.ProgressEvent(item))
	p.publish(item, progress.ErrorEvent(item.ID, message))
	metrics.PipelineRuns.WithLabelValues("failed").Inc()
}

func (p *Pipeline) publish(item *catalog.Item, evt progress.Event) {
	p.publisher.PublishAll(progress.Topics(item.ID, item.OwnerID), evt)
}
