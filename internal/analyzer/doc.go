// Package analyzer defines the content-sensitivity classification contract
// used by the analyzing_content stage.
//
// The pipeline depends only on Analyzer. Concrete classifiers implement Model
// and are adapted with FromModel, which converts model errors and panics into
// a pending Result so analysis never aborts a run. StubModel is the bundled
// classifier; it synthesizes results from file contents or a seeded source.
package analyzer
