// Package stages implements the working pipeline stages and assembles them
// into a workflow.StageSet.
//
// Metadata, thumbnail, and analysis handlers never return errors: their
// collaborators hand back a result or a fallback value, which the handler
// merges into the item. Finalize is the only stage that can fail a run, when
// the source file has disappeared.
package stages
