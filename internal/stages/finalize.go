package stages

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"mediaflow/internal/catalog"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
	"mediaflow/internal/stage"
)

// Finalize confirms the source is still servable before the item completes.
type Finalize struct {
	logger *slog.Logger
}

// NewFinalize builds the finalizing handler.
func NewFinalize(logger *slog.Logger) *Finalize {
	return &Finalize{logger: logging.NewComponentLogger(logger, "finalize")}
}

func (s *Finalize) Execute(ctx context.Context, item *catalog.Item) error {
	info, err := os.Stat(item.FilePath)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, string(catalog.StageFinalizing), "stat source", "source file unavailable", err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, string(catalog.StageFinalizing), "stat source", "source is not a regular file", nil)
	}
	// Ingest facts are immutable; a changed size means ranges would be served
	// against stale bounds.
	if info.Size() != item.SizeBytes {
		logging.WithContext(ctx, s.logger).Warn("source size changed since ingest",
			logging.String(logging.FieldEventType, "source_size_changed"),
			logging.String(logging.FieldErrorHint, "re-ingest the file to refresh its size"),
			logging.Int64("recorded_bytes", item.SizeBytes),
			logging.Int64("current_bytes", info.Size()),
		)
	}
	return nil
}

func (s *Finalize) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("finalize")
}
