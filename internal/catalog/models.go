package catalog

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaflow/internal/analyzer"
)

// Status is the coarse lifecycle of an item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Stage is the pipeline position of an item.
type Stage string

const (
	StageQueued              Stage = "queued"
	StageExtractingMetadata  Stage = "extracting_metadata"
	StageGeneratingThumbnail Stage = "generating_thumbnail"
	StageAnalyzingContent    Stage = "analyzing_content"
	StageFinalizing          Stage = "finalizing"
	StageDone                Stage = "done"
	StageError               Stage = "error"
)

// DaemonStopReason is the processing error recorded for runs lost to a restart.
const DaemonStopReason = "Daemon stopped"

var stageOrder = []Stage{
	StageQueued,
	StageExtractingMetadata,
	StageGeneratingThumbnail,
	StageAnalyzingContent,
	StageFinalizing,
	StageDone,
}

var stageCheckpoints = map[Stage]int{
	StageQueued:              0,
	StageExtractingMetadata:  10,
	StageGeneratingThumbnail: 30,
	StageAnalyzingContent:    50,
	StageFinalizing:          90,
	StageDone:                100,
}

var titleCaser = cases.Title(language.English)

// Checkpoint is the progress percentage reached on entering the stage. The
// error stage has no checkpoint; ok is false for it and for unknown stages.
func (s Stage) Checkpoint() (int, bool) {
	p, ok := stageCheckpoints[s]
	return p, ok
}

// Index is the stage's position in the forward order, or -1 for error/unknown.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Label renders the stage for humans, e.g. "Extracting Metadata".
func (s Stage) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// IsTerminal reports whether no further automatic transitions occur.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageError
}

// StageOrder returns the forward stage sequence.
func StageOrder() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return status, true
	}
	return "", false
}

// Item is one media file and its processing record.
type Item struct {
	ID        string
	OwnerID   string
	Title     string
	FilePath  string
	MimeType  string
	SizeBytes int64

	Status          Status
	Stage           Stage
	Progress        int
	ProgressMessage string
	ProcessingError string

	DurationSeconds float64
	Width           int
	Height          int
	VideoCodec      string
	ThumbnailPath   string
	Sensitivity     *analyzer.Result

	ViewCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the status/stage/progress invariants.
func (i *Item) Validate() error {
	if i.Progress < 0 || i.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrInvalidState, i.Progress)
	}
	completed := i.Status == StatusCompleted
	if completed != (i.Stage == StageDone) || completed != (i.Progress == 100) {
		return fmt.Errorf("%w: status %s, stage %s, progress %d", ErrInvalidState, i.Status, i.Stage, i.Progress)
	}
	failed := i.Status == StatusFailed
	if failed != (i.Stage == StageError) {
		return fmt.Errorf("%w: status %s with stage %s", ErrInvalidState, i.Status, i.Stage)
	}
	if !failed && i.ProcessingError != "" {
		return fmt.Errorf("%w: processing error set on %s item", ErrInvalidState, i.Status)
	}
	if i.Stage != StageError && i.Stage.Index() < 0 {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidState, i.Stage)
	}
	return nil
}

// CanReprocess reports whether the item is at rest and may be resubmitted.
func (i *Item) CanReprocess() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed
}

// ResetForReprocess returns the item to its freshly ingested state. Derived
// results are cleared so stages repopulate them; the id and view count stay.
func (i *Item) ResetForReprocess() {
	i.Status = StatusPending
	i.Stage = StageQueued
	i.Progress = 0
	i.ProgressMessage = StageQueued.Label()
	i.ProcessingError = ""
	i.DurationSeconds = 0
	i.Width = 0
	i.Height = 0
	i.VideoCodec = ""
	i.ThumbnailPath = ""
	i.Sensitivity = nil
}

// EnterStage moves the item forward to stage. Progress never decreases.
func (i *Item) EnterStage(stage Stage) error {
	checkpoint, ok := stage.Checkpoint()
	if !ok {
		return fmt.Errorf("%w: cannot enter stage %q", ErrInvalidState, stage)
	}
	if i.Stage.IsTerminal() || stage.Index() < i.Stage.Index() {
		return fmt.Errorf("%w: transition %s -> %s", ErrInvalidState, i.Stage, stage)
	}
	i.Stage = stage
	i.Progress = max(i.Progress, checkpoint)
	i.ProgressMessage = stage.Label()
	switch stage {
	case StageDone:
		i.Status = StatusCompleted
		i.Progress = 100
	case StageQueued:
		i.Status = StatusPending
	default:
		i.Status = StatusProcessing
	}
	return nil
}

// SetFailed moves the item to the error stage. Progress keeps its last value.
func (i *Item) SetFailed(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "processing failed"
	}
	i.Status = StatusFailed
	i.Stage = StageError
	i.ProcessingError = message
	i.ProgressMessage = "Error"
	if i.Progress >= 100 {
		i.Progress = 99
	}
}
