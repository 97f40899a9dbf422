// Package catalog persists media items and their processing state in SQLite.
//
// Each Item records the immutable ingest facts (path, MIME type, size), the
// pipeline position (status, stage, progress), and the results stages merge in
// (probe metadata, thumbnail, sensitivity). Store writes refuse records that
// violate the status/stage/progress invariants checked by Item.Validate, and
// the view counter is only ever changed through IncrementViews so pipeline
// updates cannot clobber it.
package catalog
