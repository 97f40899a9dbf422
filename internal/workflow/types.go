package workflow

import (
	"context"
	"errors"
	"fmt"

	"mediaflow/internal/catalog"
	"mediaflow/internal/progress"
	"mediaflow/internal/services"
	"mediaflow/internal/stage"
)

// ErrNotReprocessable is returned when reprocess is requested for an item
// that is still pending or processing.
var ErrNotReprocessable = fmt.Errorf("item is not at rest: %w", services.ErrConflict)

var errStagesNotConfigured = errors.New("workflow stages not configured")

// StageSet bundles the concrete handlers the pipeline runs, one per working
// stage.
type StageSet struct {
	Metadata  stage.Handler
	Thumbnail stage.Handler
	Analysis  stage.Handler
	Finalize  stage.Handler
}

// RecordStore is the slice of the catalog the pipeline needs.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*catalog.Item, error)
	Update(ctx context.Context, item *catalog.Item) error
}

// Publisher delivers an event to every subscriber of the given topics.
type Publisher interface {
	PublishAll(topics []string, evt progress.Event) int
}

type pipelineStage struct {
	stage   catalog.Stage
	handler stage.Handler
}

func (s StageSet) ordered() []pipelineStage {
	return []pipelineStage{
		{stage: catalog.StageExtractingMetadata, handler: s.Metadata},
		{stage: catalog.StageGeneratingThumbnail, handler: s.Thumbnail},
		{stage: catalog.StageAnalyzingContent, handler: s.Analysis},
		{stage: catalog.StageFinalizing, handler: s.Finalize},
	}
}

func (s StageSet) complete() bool {
	for _, stg := range s.ordered() {
		if stg.handler == nil {
			return false
		}
	}
	return true
}

type nopPublisher struct{}

func (nopPublisher) PublishAll([]string, progress.Event) int { return 0 }
