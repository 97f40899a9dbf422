// Package logging assembles structured slog loggers for mediaflow.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with media item IDs, stages, and request IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
