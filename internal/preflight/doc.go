// Package preflight provides readiness checks for the filesystem paths and
// external binaries mediaflow depends on.
//
// The daemon runs RunAll at startup and logs failures; /api/status and the
// CLI "mediaflow status" command report the same results. Missing media
// tools are reported but never block startup because the pipeline falls back
// to zero metadata and absent thumbnails.
package preflight
