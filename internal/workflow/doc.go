// Package workflow advances media items through the processing stages.
//
// A Pipeline runs one item from queued to done (or error), persisting the
// record and publishing a progress event at every checkpoint. A Scheduler
// admits submitted ids in FIFO order onto at most N concurrent pipeline runs.
// The Manager owns both, wires them to the catalog store and the progress
// hub, and implements reprocessing and status reporting.
//
// The scheduler queue lives only in memory. Ids waiting for a slot when the
// process stops are lost; on the next start RecoverAbandoned marks their
// records failed so reprocess can resubmit them.
//
// Add new stages by extending StageSet and the stage order in the catalog
// package; the pipeline walks StageSet in that order.
package workflow
