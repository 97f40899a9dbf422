// Package daemon coordinates the long-running mediaflow process and its HTTP
// surface.
//
// It wires configuration, catalog storage, the progress hub, and the workflow
// manager into a single lifecycle with flock-based locking to prevent multiple
// instances. On start it fails records a previous process abandoned, logs
// preflight and dependency problems, then starts the scheduler and the chi
// API server.
//
// The API server exposes:
//
//   - /media/{id} byte-range streaming plus /thumbnail and /info
//   - /api/items ingest, listing, lookup and reprocess
//   - /api/status daemon, scheduler, stage and dependency health
//   - /ws progress subscriptions backed by the progress hub
//   - /metrics Prometheus collectors
//
// Keep orchestration and transport logic here: pipeline steps live in
// workflow and stages while the daemon focuses on startup, shutdown, and
// request handling.
package daemon
