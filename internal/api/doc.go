// Package api defines wire-format types and converters for the HTTP API
// layer. It translates catalog and workflow models into transport-friendly
// DTOs that the CLI client and browser consumers can render without coupling
// to internal types.
//
// # Key Types
//
// Item: transport representation of a media item with stage progress,
// extracted metadata, thumbnail location, sensitivity result and view count.
//
// MediaInfo: the public metadata subset served on /media/{id}/info.
//
// WorkflowStatus: scheduler occupancy, item counts, stage health, last error.
//
// DaemonStatus: aggregated runtime information including dependencies and
// preflight results.
//
// # Converters
//
// FromItem: catalog.Item -> Item, FromStatusSummary: workflow.StatusSummary ->
// WorkflowStatus, StageHealthSlice: deterministic ordering of stage health.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (catalog.Status, catalog.Stage) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
