package api

import (
	"slices"
	"strings"
	"time"

	"mediaflow/internal/catalog"
	"mediaflow/internal/deps"
	"mediaflow/internal/preflight"
	"mediaflow/internal/stage"
	"mediaflow/internal/workflow"
)

// FromItem converts a catalog record to its API representation.
func FromItem(item *catalog.Item) Item {
	if item == nil {
		return Item{}
	}
	dto := Item{
		ID:              item.ID,
		OwnerID:         item.OwnerID,
		Title:           item.Title,
		FilePath:        item.FilePath,
		MimeType:        item.MimeType,
		SizeBytes:       item.SizeBytes,
		Status:          string(item.Status),
		Stage:           string(item.Stage),
		Progress:        item.Progress,
		Message:         item.ProgressMessage,
		ProcessingError: item.ProcessingError,
		DurationSeconds: item.DurationSeconds,
		Width:           item.Width,
		Height:          item.Height,
		VideoCodec:      item.VideoCodec,
		ThumbnailPath:   item.ThumbnailPath,
		ViewCount:       item.ViewCount,
		CreatedAt:       FormatTime(item.CreatedAt),
		UpdatedAt:       FormatTime(item.UpdatedAt),
	}
	if item.Sensitivity != nil {
		result := *item.Sensitivity
		dto.Sensitivity = &result
	}
	return dto
}

// FromItems converts a slice of catalog records into API DTOs. The result is
// never nil so empty lists encode as [].
func FromItems(items []*catalog.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// InfoFromItem extracts the public media metadata.
func InfoFromItem(item *catalog.Item) MediaInfo {
	if item == nil {
		return MediaInfo{}
	}
	return MediaInfo{
		Title:           item.Title,
		DurationSeconds: item.DurationSeconds,
		Width:           item.Width,
		Height:          item.Height,
		MimeType:        item.MimeType,
		SizeBytes:       item.SizeBytes,
		Status:          string(item.Status),
	}
}

// FromStatusSummary converts workflow diagnostics to the API shape.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:    summary.Running,
		ItemCounts: ItemCounts(summary.Items),
		Scheduler: SchedulerStatus{
			Workers: summary.Scheduler.Workers,
			Active:  summary.Scheduler.Active,
			Queued:  summary.Scheduler.Queued,
			Peak:    summary.Scheduler.Peak,
			Running: summary.Scheduler.Running,
		},
		LastError:   summary.LastError,
		LastItemID:  summary.LastItemID,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
}

// ItemCounts produces a status-keyed representation of the catalog summary.
func ItemCounts(summary catalog.Summary) map[string]int {
	return map[string]int{
		"total":                          summary.Total,
		string(catalog.StatusPending):    summary.Pending,
		string(catalog.StatusProcessing): summary.Processing,
		string(catalog.StatusCompleted):  summary.Completed,
		string(catalog.StatusFailed):     summary.Failed,
	}
}

// StageHealthSlice converts a stage health map into a slice ordered by the
// pipeline stage sequence, with unknown names sorted after it.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, ib := stageRank(a), stageRank(b)
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

func stageRank(name string) int {
	if idx := catalog.Stage(name).Index(); idx >= 0 {
		return idx
	}
	return len(catalog.StageOrder())
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// FromPreflight converts preflight check results.
func FromPreflight(results []preflight.Result) []CheckStatus {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckStatus, 0, len(results))
	for _, r := range results {
		out = append(out, CheckStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
