// Package services defines shared utilities consumed by the pipeline stage
// handlers and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp media item IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (validation, conflict, missing, tool failure) with errors.Is.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
