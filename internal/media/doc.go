// Package media exposes the metadata and thumbnail capabilities the pipeline
// calls. Both are result-or-fallback: a failing or missing external tool
// yields zero metadata or an unavailable thumbnail, never an error, and the
// failure is logged as a warning.
package media
