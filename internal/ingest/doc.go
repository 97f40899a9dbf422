// Package ingest brings media files into the catalog.
//
// Service validates a path (regular, non-empty, sniffed as audio, video or
// image), derives a title, creates the pending record and hands it to the
// workflow manager. Watcher feeds Service from a drop folder, waiting for
// each file to settle before ingesting it.
package ingest
