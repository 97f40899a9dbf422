package api

import "mediaflow/internal/analyzer"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Item describes a media item in a transport-friendly format.
type Item struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"ownerId"`
	Title           string           `json:"title"`
	FilePath        string           `json:"filePath"`
	MimeType        string           `json:"mimeType"`
	SizeBytes       int64            `json:"sizeBytes"`
	Status          string           `json:"status"`
	Stage           string           `json:"stage"`
	Progress        int              `json:"progress"`
	Message         string           `json:"message,omitempty"`
	ProcessingError string           `json:"processingError,omitempty"`
	DurationSeconds float64          `json:"durationSeconds"`
	Width           int              `json:"width,omitempty"`
	Height          int              `json:"height,omitempty"`
	VideoCodec      string           `json:"videoCodec,omitempty"`
	ThumbnailPath   string           `json:"thumbnailPath,omitempty"`
	Sensitivity     *analyzer.Result `json:"sensitivityResult,omitempty"`
	ViewCount       int64            `json:"viewCount"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
}

// MediaInfo is the public metadata served alongside a media stream.
type MediaInfo struct {
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	MimeType        string  `json:"mimeType"`
	SizeBytes       int64   `json:"sizeBytes"`
	Status          string  `json:"status"`
}

// SchedulerStatus reports worker occupancy.
type SchedulerStatus struct {
	Workers int  `json:"workers"`
	Active  int  `json:"active"`
	Queued  int  `json:"queued"`
	Peak    int  `json:"peak"`
	Running bool `json:"running"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool            `json:"running"`
	ItemCounts  map[string]int  `json:"itemCounts"`
	Scheduler   SchedulerStatus `json:"scheduler"`
	LastError   string          `json:"lastError,omitempty"`
	LastItemID  string          `json:"lastItemId,omitempty"`
	StageHealth []StageHealth   `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckStatus reports one preflight check.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	DatabasePath  string             `json:"databasePath"`
	LockFilePath  string             `json:"lockFilePath"`
	Subscriptions int                `json:"subscriptions"`
	Workflow      WorkflowStatus     `json:"workflow"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Preflight     []CheckStatus      `json:"preflight,omitempty"`
}

// ItemListResponse wraps a collection of items for API responses.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse wraps a single item.
type ItemResponse struct {
	Item Item `json:"item"`
}

// IngestRequest is the body of POST /api/items.
type IngestRequest struct {
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
	Title string `json:"title,omitempty"`
}

// ErrorResponse is the JSON error envelope used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
