package workflow

import (
	"context"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItemID  string
	Scheduler   SchedulerStats
	Items       catalog.Summary
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	stages := m.stages.ordered()
	m.mu.RUnlock()

	items, err := m.store.Summarize(ctx)
	if err != nil {
		m.logger.Warn("failed to summarize items", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			health[string(stg.stage)] = stage.Unhealthy(string(stg.stage), "handler not configured")
			continue
		}
		health[string(stg.stage)] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		LastItemID:  lastItem,
		Scheduler:   m.scheduler.Stats(),
		Items:       items,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
